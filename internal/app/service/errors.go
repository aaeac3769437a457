package service

import "errors"

var (
	ErrURLRequired        = errors.New("url is required")
	ErrInvalidURL         = errors.New("url must be an absolute http or https URL")
	ErrInvalidValidity    = errors.New("validity must be a whole number of minutes between 1 and 525600")
	ErrInvalidShortcode   = errors.New("shortcode must be 1-20 alphanumeric characters")
	ErrDuplicateShortcode = errors.New("shortcode already taken")

	// ErrLinkExpired is returned once a link is past its expiry; the link has been removed.
	ErrLinkExpired = errors.New("link expired")

	// ErrCodeSpaceExhausted is returned when no free code was found within the attempt budget.
	ErrCodeSpaceExhausted = errors.New("failed to generate unique short code")
)

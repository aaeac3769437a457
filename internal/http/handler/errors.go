package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/TinyLink/internal/app/repository"
	"github.com/sifan077/TinyLink/internal/app/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type apiError struct {
	status int
	body   ErrorResponse
}

var knownErrors = []struct {
	target error
	apiError
}{
	{service.ErrURLRequired, apiError{fiber.StatusBadRequest, ErrorResponse{"URL missing", "URL is required"}}},
	{service.ErrInvalidURL, apiError{fiber.StatusBadRequest, ErrorResponse{"Bad URL", "Use http:// or https://"}}},
	{service.ErrInvalidValidity, apiError{fiber.StatusBadRequest, ErrorResponse{"Invalid validity", "Validity must be between 1 and 525600 minutes"}}},
	{service.ErrInvalidShortcode, apiError{fiber.StatusBadRequest, ErrorResponse{"Invalid shortcode", "Alphanumeric only (1-20)"}}},
	{service.ErrDuplicateShortcode, apiError{fiber.StatusBadRequest, ErrorResponse{"Duplicate", "Shortcode already taken"}}},
	{repository.ErrLinkNotFound, apiError{fiber.StatusNotFound, ErrorResponse{"Not found", "Unknown shortcode"}}},
	{service.ErrLinkExpired, apiError{fiber.StatusGone, ErrorResponse{"Expired", "This link is no longer active"}}},
	{service.ErrCodeSpaceExhausted, apiError{fiber.StatusServiceUnavailable, ErrorResponse{"Service unavailable", "Unable to generate a unique shortcode, try again later"}}},
}

// classify maps a service error to its response. ok is false for unexpected errors.
func classify(err error) (apiError, bool) {
	for _, known := range knownErrors {
		if errors.Is(err, known.target) {
			return known.apiError, true
		}
	}
	return apiError{}, false
}

func writeError(c *fiber.Ctx, status int, title, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: title, Message: message})
}

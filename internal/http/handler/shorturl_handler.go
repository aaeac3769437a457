package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/TinyLink/internal/app/service"
	"github.com/sifan077/TinyLink/internal/http/middleware"
	"go.uber.org/zap"
)

const expiryLayout = "2006-01-02T15:04:05.000Z07:00"

// ShortURLDeps groups dependencies required by the short URL handlers.
type ShortURLDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	// BaseURL prefixes returned short links; the request's own base URL is used when empty.
	BaseURL string
	// CreateLimiter, when set, runs before link creation.
	CreateLimiter fiber.Handler
}

// ShortURLHandler implements create, redirect and stats.
type ShortURLHandler struct {
	logger        *zap.Logger
	linkService   service.LinkService
	baseURL       string
	createLimiter fiber.Handler
}

// NewShortURLHandler creates a handler with the provided dependencies.
func NewShortURLHandler(deps ShortURLDeps) *ShortURLHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShortURLHandler{
		logger:        logger,
		linkService:   deps.LinkService,
		baseURL:       strings.TrimRight(deps.BaseURL, "/"),
		createLimiter: deps.CreateLimiter,
	}
}

// Register wires short URL routes onto the provided router.
func (h *ShortURLHandler) Register(router fiber.Router) {
	if h.createLimiter != nil {
		router.Post("/shorturls", h.createLimiter, h.Create)
	} else {
		router.Post("/shorturls", h.Create)
	}
	router.Get("/shorturls/:code/stats", h.Stats)
	router.Get("/shorturls/:code", h.Redirect)
}

// CreateShortURLRequest represents the request body for creating a short URL.
type CreateShortURLRequest struct {
	URL       string `json:"url" form:"url"`
	Validity  *int   `json:"validity,omitempty" form:"validity"`
	Shortcode string `json:"shortcode,omitempty" form:"shortcode"`
}

// CreateShortURLResponse represents the response for creating a short URL.
type CreateShortURLResponse struct {
	ShortLink string `json:"shortLink"`
	Expiry    string `json:"expiry"`
}

// Create handles POST /shorturls
func (h *ShortURLHandler) Create(c *fiber.Ctx) error {
	var req CreateShortURLRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "Bad request", "Invalid request body")
		}
	}

	link, err := h.linkService.CreateLink(c.UserContext(), service.CreateLinkInput{
		URL:             strings.TrimSpace(req.URL),
		ValidityMinutes: req.Validity,
		Code:            req.Shortcode,
	})
	if err != nil {
		return h.fail(c, err, "Short URL creation failed")
	}

	return c.Status(fiber.StatusCreated).JSON(CreateShortURLResponse{
		ShortLink: h.shortLink(c, link.Code),
		Expiry:    link.ExpiresAt.UTC().Format(expiryLayout),
	})
}

// Redirect handles GET /shorturls/:code
func (h *ShortURLHandler) Redirect(c *fiber.Ctx) error {
	code := c.Params("code")

	link, err := h.linkService.Resolve(c.UserContext(), code, service.ClientInfo{
		IP:        middleware.ClientIP(c),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Referrer:  c.Get(fiber.HeaderReferer),
	})
	if err != nil {
		return h.fail(c, err, "Redirect failed")
	}

	h.logger.Debug("redirecting short link", zap.String("code", code), zap.String("target", link.URL))
	return c.Redirect(link.URL, fiber.StatusFound)
}

// Stats handles GET /shorturls/:code/stats
func (h *ShortURLHandler) Stats(c *fiber.Ctx) error {
	code := c.Params("code")

	stats, err := h.linkService.GetStats(c.UserContext(), code)
	if err != nil {
		resp, ok := classify(err)
		switch {
		case ok && resp.status == fiber.StatusNotFound:
			return writeError(c, fiber.StatusNotFound, "Not found", "No statistics available")
		case ok && resp.status == fiber.StatusGone:
			return writeError(c, fiber.StatusGone, "Expired", "Stats unavailable for expired link")
		}
		return h.fail(c, err, "Stats retrieval failed")
	}

	return c.JSON(stats)
}

func (h *ShortURLHandler) fail(c *fiber.Ctx, err error, failure string) error {
	if resp, ok := classify(err); ok {
		return c.Status(resp.status).JSON(resp.body)
	}

	h.logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return writeError(c, fiber.StatusInternalServerError, "Server failure", failure)
}

func (h *ShortURLHandler) shortLink(c *fiber.Ctx, code string) string {
	base := h.baseURL
	if base == "" {
		base = c.BaseURL()
	}
	return base + "/shorturls/" + code
}

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/TinyLink/internal/app/service"
	"go.uber.org/zap"
)

// HealthDeps groups dependencies required by the health handler.
type HealthDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Service     string
	Version     string
	Clock       func() time.Time
}

// HealthHandler reports liveness and store sizes.
type HealthHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	service     string
	version     string
	now         func() time.Time
}

func NewHealthHandler(deps HealthDeps) *HealthHandler {
	h := &HealthHandler{
		logger:      deps.Logger,
		linkService: deps.LinkService,
		service:     deps.Service,
		version:     deps.Version,
		now:         deps.Clock,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	Service        string `json:"service"`
	Version        string `json:"version"`
	ActiveURLs     int    `json:"activeUrls"`
	TotalAnalytics int    `json:"totalAnalytics"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	counts, err := h.linkService.Counts(c.UserContext())
	if err != nil {
		h.logger.Error("failed to read store counts", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "Server failure", "Health check failed")
	}

	return c.JSON(HealthResponse{
		Status:         "healthy",
		Timestamp:      h.now().UTC().Format(expiryLayout),
		Service:        h.service,
		Version:        h.version,
		ActiveURLs:     counts.Links,
		TotalAnalytics: counts.Analytics,
	})
}

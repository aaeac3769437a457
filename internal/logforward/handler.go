package logforward

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Sender forwards one entry and returns the remote response.
type Sender interface {
	Send(ctx context.Context, entry Entry) (json.RawMessage, error)
}

// Handler exposes POST /log.
type Handler struct {
	sender Sender
	logger *zap.Logger
}

func NewHandler(sender Sender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sender: sender, logger: logger}
}

func (h *Handler) Register(router fiber.Router) {
	router.Post("/log", h.Log)
}

// Log handles POST /log. Every failure is reported as 401 with an error message.
func (h *Handler) Log(c *fiber.Ctx) error {
	var entry Entry
	if err := c.BodyParser(&entry); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid request body"})
	}

	resp, err := h.sender.Send(c.UserContext(), entry)
	if err != nil {
		h.logger.Warn("log forward failed", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(resp)
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"peanut/internal/session"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	sessions *session.Manager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sessions *session.Manager) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"sessions":  h.sessions.Count(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

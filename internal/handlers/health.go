package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"taskmate/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	connManager *services.ConnectionManager
	monitor     *services.ProviderMonitor // nil when probing is disabled
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(connManager *services.ConnectionManager, monitor *services.ProviderMonitor) *HealthHandler {
	return &HealthHandler{connManager: connManager, monitor: monitor}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	providerStatus := services.ProviderStatusUnknown
	if h.monitor != nil {
		providerStatus = h.monitor.Status()
	}

	return c.JSON(fiber.Map{
		"status":         "healthy",
		"connections":    h.connManager.Count(),
		"model_provider": providerStatus,
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and store reachability.
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

type healthStatus struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// Health answers 200 when the store responds and 503 otherwise.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(envelope{
			Data:  healthStatus{Status: "degraded", Store: "unreachable"},
			Error: "Service unavailable",
		})
	}
	return respond(c, fiber.StatusOK, healthStatus{Status: "ok", Store: "ok"}, "Server is running")
}

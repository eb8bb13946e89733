package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/example/farmfresh/internal/errutil"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Status  bool   `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Path    string `json:"path,omitempty"`
}

func respond(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(envelope{Status: true, Data: data, Message: message})
}

func respondList(c *fiber.Ctx, data any, count int) error {
	return c.JSON(envelope{Status: true, Data: data, Count: &count})
}

// ErrorHandler renders errors as the failure envelope. Coded errors get their
// mapped status; anything unexpected is logged and hidden.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(envelope{Error: fe.Message})
		}

		errutil.LogError(c.UserContext(), logger, "request failed", err,
			"method", c.Method(), "path", c.Path())
		return c.Status(errutil.HTTPStatus(err)).JSON(envelope{Error: errutil.PublicMessage(err)})
	}
}

// NotFound answers requests that matched no route.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(envelope{Error: "Route not found", Path: c.OriginalURL()})
}

func badBody() error {
	return errutil.Validation("Invalid request body")
}

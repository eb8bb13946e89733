package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/farmfresh/internal/errutil"
)

func errorApp(logs io.Writer, err error) *fiber.App {
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Get("/", func(*fiber.Ctx) error { return err })
	return app
}

func decode(t *testing.T, app *fiber.App) (int, envelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", errutil.Validation("Email and password are required"), 400, "Email and password are required"},
		{"conflict", errutil.Conflict("User with this email already exists"), 409, "User with this email already exists"},
		{"fiber error", fiber.NewError(fiber.StatusRequestEntityTooLarge, "Request Entity Too Large"), 413, "Request Entity Too Large"},
		{"internal", errutil.Internal("CreateUser", errors.New("pq: connection refused")), 500, errutil.InternalMessage},
		{"plain error", errors.New("boom"), 500, errutil.InternalMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			status, env := decode(t, errorApp(&logs, tt.err))
			assert.Equal(t, tt.status, status)
			assert.False(t, env.Status)
			assert.Equal(t, tt.message, env.Error)
		})
	}
}

func TestErrorHandler_LogsCause(t *testing.T) {
	var logs bytes.Buffer
	_, env := decode(t, errorApp(&logs, errutil.Internal("CreateUser", errors.New("pq: connection refused"))))

	assert.NotContains(t, env.Error, "connection refused")
	assert.Contains(t, logs.String(), "connection refused")
	assert.Contains(t, logs.String(), `"path":"/"`)
}

func TestNotFound(t *testing.T) {
	app := fiber.New()
	app.Use(NotFound)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing?q=1", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Route not found", env.Error)
	assert.Equal(t, "/missing?q=1", env.Path)
}

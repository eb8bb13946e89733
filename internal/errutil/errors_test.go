package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/farmfresh/internal/errutil"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", errutil.Validation("bad %s", "input"), http.StatusBadRequest},
		{"unauthorized", errutil.Unauthorized("nope"), http.StatusUnauthorized},
		{"forbidden", errutil.Forbidden("nope"), http.StatusForbidden},
		{"conflict", errutil.Conflict("dup"), http.StatusConflict},
		{"not found", errutil.NotFound("gone"), http.StatusNotFound},
		{"internal", errutil.Internal("op", errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, errutil.HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage_HidesInternalDetails(t *testing.T) {
	err := errutil.Internal("db", errors.New("connection refused to 10.0.0.1"))
	assert.Equal(t, errutil.InternalMessage, errutil.PublicMessage(err))

	plain := errors.New("pq: relation users does not exist")
	assert.Equal(t, errutil.InternalMessage, errutil.PublicMessage(plain))
}

func TestPublicMessage_ClientErrors(t *testing.T) {
	assert.Equal(t, "bad input", errutil.PublicMessage(errutil.Validation("bad %s", "input")))
	assert.Equal(t, "dup", errutil.PublicMessage(errutil.Conflict("dup")))
}

func TestHasCode(t *testing.T) {
	err := errutil.NotFound("User not found")
	assert.True(t, errutil.HasCode(err, errutil.CodeNotFound))
	assert.False(t, errutil.HasCode(err, errutil.CodeConflict))
	assert.False(t, errutil.HasCode(nil, errutil.CodeNotFound))
}

func TestLogError_InternalAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	errutil.LogError(context.Background(), logger, "request failed", errutil.Internal("Create", errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "request failed", entry["msg"])
	assert.Equal(t, errutil.CodeInternal, entry["code"])
	assert.Contains(t, entry["error"], "boom")
}

func TestLogError_ClientErrorAtDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	errutil.LogError(context.Background(), logger, "request failed", errutil.Validation("missing email"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, errutil.CodeValidation, entry["code"])
}

func TestInvalidOrExpiredToken(t *testing.T) {
	err := errutil.InvalidOrExpiredToken("Password reset token is invalid or has expired")
	assert.Equal(t, http.StatusBadRequest, errutil.HTTPStatus(err))
	assert.Equal(t, "Password reset token is invalid or has expired", errutil.PublicMessage(err))
}

func TestInternalWithMessage(t *testing.T) {
	err := errutil.InternalWithMessage("SendResetEmail", "Failed to send password reset email", errors.New("smtp: 550"))
	assert.Equal(t, http.StatusInternalServerError, errutil.HTTPStatus(err))
	assert.Equal(t, "Failed to send password reset email", errutil.PublicMessage(err))
	assert.ErrorContains(t, err, "smtp: 550")
}

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error with structured context if it's an oops error.
// Internal failures are logged at error level with their stacktrace; client
// errors are logged at debug level. extra is appended as key/value pairs.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, extra ...any) {
	code := Code(err)
	level := slog.LevelDebug
	if code == CodeInternal {
		level = slog.LevelError
	}

	attrs := []any{"error", err.Error(), "code", code}
	if oopsErr, ok := oops.AsOops(err); ok {
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, "context", errCtx)
		}
		if code == CodeInternal {
			attrs = append(attrs, "stacktrace", oopsErr.Stacktrace())
		}
	}
	attrs = append(attrs, extra...)
	logger.Log(ctx, level, msg, attrs...)
}

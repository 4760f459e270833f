package http

import (
	"context"
	"log/slog"
)

func httpLogger() *slog.Logger {
	return slog.Default().With("module", "http", "layer", "adapter")
}

// logHTTPOperationError records a handled failure. Client mistakes log at warn, server
// faults at error.
func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("outcome", "failure"),
		slog.Int("status_code", statusCode),
		slog.String("error_code", code),
		slog.String("message", message),
		slog.String("request_id", requestIDFromContext(ctx)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	httpLogger().LogAttrs(ctx, level, "http operation failed", attrs...)
}

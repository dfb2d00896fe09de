// Package logging carries request-scoped slog loggers through contexts so
// middleware, handlers and services annotate a single logger chain instead of
// each building their own.
package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// ContextWithLogger derives a context carrying the logger. Nil inputs leave
// the context untouched.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, or nil when none is.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}

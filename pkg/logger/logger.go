// Package logger configures the process-wide slog logger and carries
// request-scoped attributes (request id, document id) through contexts.
package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	documentIDKey
)

// Setup installs the default slog handler. format is "json" or "text".
func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func WithDocumentID(ctx context.Context, documentID int64) context.Context {
	return context.WithValue(ctx, documentIDKey, documentID)
}

// FromContext returns the default logger enriched with whatever ids ctx carries.
func FromContext(ctx context.Context) *slog.Logger {
	log := slog.Default()
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		log = log.With("request_id", requestID)
	}
	if docID, ok := ctx.Value(documentIDKey).(int64); ok {
		log = log.With("document_id", docID)
	}
	return log
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

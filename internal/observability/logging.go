// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
	OperationKey  LogContextKey = "operation"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	Configure(os.Getenv("APP_ENV"), "info", os.Stderr)
}

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing it to the underlying handler.
func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(CorrelationID).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if op, ok := ctx.Value(OperationKey).(string); ok && op != "" {
		r.AddAttrs(slog.String("operation", op))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// Configure replaces the process logger. Production gets JSON, everything else text.
func Configure(env, level string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger.Store(slog.New(&ctxHandler{handler}))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// EnsureCorrelationID returns ctx unchanged when it already carries a correlation ID.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if ExtractCorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, GenerateCorrelationID())
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

func fieldAttrs(base []any, fields map[string]interface{}) []any {
	for k, v := range fields {
		base = append(base, slog.Any(k, v))
	}
	return base
}

// LogAsyncOperationStart logs the pending transition of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := fieldAttrs([]any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
	}, fields)
	Logger().DebugContext(ctx, "async operation pending", attrs...)
}

// LogAsyncOperationEnd logs the fulfilled transition of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := fieldAttrs([]any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
	}, fields)
	Logger().InfoContext(ctx, "async operation fulfilled", attrs...)
}

// LogAsyncOperationError logs the rejected transition of an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := fieldAttrs([]any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	}, fields)
	Logger().ErrorContext(ctx, "async operation rejected", attrs...)
}

package emulator

import (
	"log/slog"
	"time"

	"feedsync/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware carries the request ID into the request context as the
// correlation ID so repository and handler logs can be joined per request.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = observability.WithCorrelationID(ctx, rid)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// Render now so the logged status is the one the client sees.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Duration("latency", time.Since(start)),
		}
		if accountID := currentAccountID(c); accountID != "" {
			fields = append(fields, slog.String("account_id", accountID))
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.Logger().WarnContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.Logger().DebugContext(c.UserContext(), "request processed", fields...)
		}
		return nil
	}
}

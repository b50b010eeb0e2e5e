package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logging emits one structured log line per request. Errors attached
// to the gin context by handlers are included; 5xx responses log at
// error level, everything else at info.
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", ClientIPFromContext(c)),
		}
		if id := RequestIDFromContext(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= 500 {
			logger.ErrorContext(c.Request.Context(), "request", attrs...)
			return
		}
		logger.InfoContext(c.Request.Context(), "request", attrs...)
	}
}

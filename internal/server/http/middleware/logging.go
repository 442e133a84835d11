package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger emits one slog line per request. The shop domain is included
// once a downstream middleware has resolved it.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}
		if shop, ok := c.Get(ShopContextKey); ok {
			if s, ok := shop.(string); ok {
				attrs = append(attrs, slog.String("shop", s))
			}
		}
		logger.Info("http request", attrs...)
	}
}

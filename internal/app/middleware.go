package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/viber-bot-go/internal/ctxutil"
	"github.com/garyellow/viber-bot-go/internal/logger"
	"github.com/garyellow/viber-bot-go/internal/webhook"
)

// securityHeadersMiddleware adds security headers to responses.
// Every route serves JSON or plain text, so nothing may be framed or scripted.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based levels:
// 5xx at error, 403 and 401 at warn, everything else at debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	log = log.WithModule("http")

	return func(c *gin.Context) {
		start := time.Now()

		if requestID := c.GetHeader(webhook.RequestIDHeader); requestID != "" {
			c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		}

		c.Next()

		status := c.Writer.Status()
		entry := log.WithField("http_method", c.Request.Method).
			WithField("http_path", c.Request.URL.Path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP())
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			entry.ErrorContext(ctx, "HTTP request failed")
		case status == 401 || status == 403:
			entry.WarnContext(ctx, "HTTP request rejected")
		default:
			entry.DebugContext(ctx, "HTTP request completed")
		}
	}
}

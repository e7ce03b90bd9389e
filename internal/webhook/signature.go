package webhook

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/viber-bot-go/internal/config"
	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
	"github.com/garyellow/viber-bot-go/internal/logger"
	"github.com/garyellow/viber-bot-go/internal/metrics"
	"github.com/garyellow/viber-bot-go/internal/viber"
)

// SignatureParam is the query parameter carrying the body signature.
const SignatureParam = "sig"

// rawBodyKey is the gin context key under which the verified body is stored.
const rawBodyKey = "webhook.raw_body"

// SignatureConfig configures SignatureMiddleware.
type SignatureConfig struct {
	AuthToken string
	Enabled   bool
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
}

// SignatureMiddleware rejects POST requests whose ?sig= does not match the
// HMAC-SHA256 of the raw body. The verified body is restored on the request
// and kept in the gin context for the handler.
func SignatureMiddleware(cfg SignatureConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewWithWriter("error", io.Discard)
	}
	cfg.Logger = cfg.Logger.WithModule("webhook")

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		body, err := readBody(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				cfg.Logger.WithField("limit", tooLarge.Limit).WarnContext(c.Request.Context(), "Webhook body too large")
				cfg.Metrics.RecordWebhookRejected("body_too_large")
				c.AbortWithStatus(http.StatusRequestEntityTooLarge)
				return
			}
			cfg.Logger.WithError(err).WarnContext(c.Request.Context(), "Failed to read webhook body")
			cfg.Metrics.RecordWebhookRejected("read")
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		if cfg.Enabled && !viber.VerifySignature(body, c.Query(SignatureParam), cfg.AuthToken) {
			cfg.Logger.WithError(domerrors.ErrInvalidSignature).
				WithField("ip", c.ClientIP()).
				WarnContext(c.Request.Context(), "Invalid webhook signature")
			cfg.Metrics.RecordWebhookRejected("signature")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Set(rawBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// RawBody returns the body stored by SignatureMiddleware, reading the
// request directly when the middleware did not run.
func RawBody(c *gin.Context) ([]byte, error) {
	if v, ok := c.Get(rawBodyKey); ok {
		if body, ok := v.([]byte); ok {
			return body, nil
		}
	}
	return readBody(c)
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxWebhookBodyBytes))
}

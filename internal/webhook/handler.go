// Package webhook receives Viber callbacks over HTTP and hands them to the
// dispatcher after the signature gate has passed.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/viber-bot-go/internal/ctxutil"
	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
	"github.com/garyellow/viber-bot-go/internal/logger"
	"github.com/garyellow/viber-bot-go/internal/metrics"
	"github.com/garyellow/viber-bot-go/internal/viber"
)

// RequestIDHeader is echoed back on every webhook response.
const RequestIDHeader = "X-Request-Id"

// Dispatcher routes a parsed callback. *bot.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *viber.Request)
}

// Handler handles Viber webhook callbacks.
type Handler struct {
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	Dispatcher Dispatcher
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Dispatcher == nil {
		return nil, domerrors.InvalidArgument("webhook handler needs a dispatcher")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewWithWriter("error", io.Discard)
	}
	return &Handler{
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     log.WithModule("webhook"),
	}, nil
}

// Handle is the gin handler for the webhook endpoint. Every callback that
// got past the signature gate is acknowledged with 200, including ones that
// cannot be parsed, so the platform does not keep retrying them.
func (h *Handler) Handle(c *gin.Context) {
	start := time.Now()

	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(RequestIDHeader, requestID)
	ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)

	body, err := RawBody(c)
	if err != nil {
		h.logger.WithError(err).WarnContext(ctx, "Failed to read webhook body")
		h.metrics.RecordWebhookRejected("read")
		c.Status(http.StatusOK)
		return
	}

	req, err := viber.ParseRequest(body)
	if err != nil {
		reason := "parse"
		switch {
		case errors.Is(err, domerrors.ErrUnknownEventKind):
			reason = "unknown_event"
		case errors.Is(err, domerrors.ErrUnknownMessageKind):
			reason = "unknown_message"
		}
		h.logger.WithError(err).
			WithField("body_bytes", len(body)).
			WarnContext(ctx, "Dropping unprocessable webhook callback")
		h.metrics.RecordWebhookRejected(reason)
		c.Status(http.StatusOK)
		return
	}

	h.dispatcher.Dispatch(ctx, req)
	c.Status(http.StatusOK)

	h.metrics.RecordWebhook(req.Event.String(), "accepted", time.Since(start).Seconds())
	h.logger.DebugContext(ctx, "Webhook callback accepted", "event_type", req.Event.String())
}

package config

import "time"

// Webhook timeouts
const (
	// HandlerProcessing bounds a single dispatched handler run.
	// Handlers run after the webhook is acknowledged, so this is not tied
	// to the platform's callback timeout.
	HandlerProcessing = 60 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout.
	// Viber callbacks are small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	// The webhook is acknowledged before any handler runs.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second

	// WebhookStartupDelay is how long to wait before registering the webhook,
	// so that the listener is up when Viber sends its verification callback.
	WebhookStartupDelay = 3 * time.Second

	// MaxWebhookBodyBytes caps the size of an inbound callback body.
	MaxWebhookBodyBytes = 1 << 20
)

// Outbound API timeouts
const (
	// APIRequest is the timeout for a single call to the Viber API.
	APIRequest = 10 * time.Second

	// APIIdleConn is how long idle keep-alive connections to the API are kept.
	APIIdleConn = 90 * time.Second
)

// Health checks
const (
	// ReadinessCheckTimeout bounds the /readyz handler.
	ReadinessCheckTimeout = 2 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Covers draining HTTP requests and in-flight handler runs, and the
	// unset_webhook call.
	GracefulShutdown = 30 * time.Second

	// SentryFlush bounds how long shutdown waits for buffered error events.
	SentryFlush = 2 * time.Second
)

// Package metrics defines the Prometheus metrics exported by the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRejectedTotal   *prometheus.CounterVec

	// Dispatch metrics
	DispatchTotal           *prometheus.CounterVec
	DispatchDurationSeconds *prometheus.HistogramVec
	DispatchInflight        prometheus.Gauge

	// Outbound API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIDurationSeconds *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimiterWaitDuration *prometheus.HistogramVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viber_webhook_requests_total",
				Help: "Total number of accepted webhook callbacks by event kind and status",
			},
			[]string{"event", "status"}, // status: dispatched, unknown_event, parse_error
		),

		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viber_webhook_duration_seconds",
				Help:    "Time from receiving a webhook callback to acknowledging it",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"event"},
		),

		WebhookRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viber_webhook_rejected_total",
				Help: "Total number of webhook callbacks rejected or dropped by reason",
			},
			[]string{"reason"}, // reason: signature, body_too_large, read, parse, unknown_event, unknown_message
		),

		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viber_dispatch_total",
				Help: "Total number of dispatched handler runs by route and outcome",
			},
			[]string{"route", "status"}, // status: success, error, panic
		),

		DispatchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viber_dispatch_duration_seconds",
				Help:    "Handler run duration in seconds by route",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"route"}, // route: command, default, handler:<kind>, event:<kind>
		),

		DispatchInflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "viber_dispatch_inflight",
				Help: "Number of handler runs currently executing",
			},
		),

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viber_api_requests_total",
				Help: "Total number of Viber API calls by endpoint and status",
			},
			[]string{"endpoint", "status"}, // status: success, api_error, http_error, network_error
		),

		APIDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viber_api_duration_seconds",
				Help:    "Viber API call duration in seconds by endpoint",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"endpoint"},
		),

		RateLimiterWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viber_rate_limiter_wait_duration_seconds",
				Help:    "Time spent waiting for rate limiter token by limiter type",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"limiter_type"},
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viber_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"module"},
		),
	}
}

// RecordWebhook records an acknowledged webhook callback.
func (m *Metrics) RecordWebhook(event, status string, duration float64) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(event, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(event).Observe(duration)
}

// RecordWebhookRejected records a callback rejected before dispatch.
func (m *Metrics) RecordWebhookRejected(reason string) {
	if m == nil {
		return
	}
	m.WebhookRejectedTotal.WithLabelValues(reason).Inc()
}

// DispatchStarted increments the in-flight gauge.
func (m *Metrics) DispatchStarted() {
	if m == nil {
		return
	}
	m.DispatchInflight.Inc()
}

// RecordDispatch records a finished handler run and decrements the in-flight gauge.
func (m *Metrics) RecordDispatch(route, status string, duration float64) {
	if m == nil {
		return
	}
	m.DispatchInflight.Dec()
	m.DispatchTotal.WithLabelValues(route, status).Inc()
	m.DispatchDurationSeconds.WithLabelValues(route).Observe(duration)
}

// RecordAPIRequest records an outbound API call.
func (m *Metrics) RecordAPIRequest(endpoint, status string, duration float64) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.APIDurationSeconds.WithLabelValues(endpoint).Observe(duration)
}

// RecordRateLimiterWait records time spent waiting for rate limiter
func (m *Metrics) RecordRateLimiterWait(limiterType string, duration float64) {
	if m == nil {
		return
	}
	m.RateLimiterWaitDuration.WithLabelValues(limiterType).Observe(duration)
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

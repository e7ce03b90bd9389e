// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/viber-bot-go/internal/bot"
	"github.com/garyellow/viber-bot-go/internal/buildinfo"
	"github.com/garyellow/viber-bot-go/internal/config"
	"github.com/garyellow/viber-bot-go/internal/logger"
	"github.com/garyellow/viber-bot-go/internal/metrics"
	"github.com/garyellow/viber-bot-go/internal/sentry"
	"github.com/garyellow/viber-bot-go/internal/viber"
	"github.com/garyellow/viber-bot-go/internal/webhook"
)

const serviceName = "viber-bot-go"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	client         *viber.Client
	dispatcher     *bot.Dispatcher
	webhookHandler *webhook.Handler
	router         *gin.Engine
	server         *http.Server
	started        atomic.Bool    // set once the listener is bound
	stop           context.CancelFunc
	wg             sync.WaitGroup // background jobs
}

// Option customizes Initialize.
type Option func(*options)

type options struct {
	logger     *logger.Logger
	registry   *prometheus.Registry
	httpClient *http.Client
}

// WithLogger replaces the stdout logger built from config.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry replaces the process-wide Prometheus registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithHTTPClient sets the HTTP client used for outbound Viber API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// Initialize creates and initializes a new application with all dependencies.
// Handlers are registered on Dispatcher() before Run.
func Initialize(ctx context.Context, cfg *config.Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		log = logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
			BetterStackToken:    cfg.BetterStackToken,
			BetterStackEndpoint: cfg.BetterStackEndpoint,
		})
		log = log.WithField("service", serviceName)
		if host, err := os.Hostname(); err == nil && host != "" {
			log = log.WithField("instance_id", host)
		}
		slog.SetDefault(log.Logger)
	}

	log.InfoContext(ctx, "Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(serviceName),
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error tracking enabled")
	}

	registry := o.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}
	m := metrics.New(registry)

	clientOpts := []viber.ClientOption{viber.WithMetrics(m), viber.WithLogger(log)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, viber.WithHTTPClient(o.httpClient))
	}
	client := viber.NewClient(cfg.Bot, clientOpts...)

	dispatcher := bot.NewDispatcher(bot.DispatcherConfig{
		Client:         client,
		Logger:         log,
		Metrics:        m,
		HandlerTimeout: cfg.Bot.HandlerTimeout,
	})

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		Dispatcher: dispatcher,
		Metrics:    m,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		client:         client,
		dispatcher:     dispatcher,
		webhookHandler: webhookHandler,
	}
	app.router = app.newRouter()

	app.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.router,
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.WithFields(map[string]any{
		"addr":            cfg.Addr(),
		"webhook_path":    cfg.Bot.WebhookPath(),
		"check_signature": cfg.Bot.CheckSignature,
		"metrics_auth":    cfg.MetricsAuthEnabled(),
	}).Info("Initialization complete")
	return app, nil
}

func (a *Application) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/ping", a.ping)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		basicAuthMiddleware("metrics", a.cfg.MetricsUsername, a.cfg.MetricsPassword, a.logger),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	router.POST(a.cfg.Bot.WebhookPath(),
		webhook.SignatureMiddleware(webhook.SignatureConfig{
			AuthToken: a.cfg.Bot.AuthToken,
			Enabled:   a.cfg.Bot.CheckSignature,
			Logger:    a.logger,
			Metrics:   a.metrics,
		}),
		a.webhookHandler.Handle)

	return router
}

// Dispatcher returns the dispatcher for handler registration.
func (a *Application) Dispatcher() *bot.Dispatcher { return a.dispatcher }

// Client returns the outbound API client, e.g. for proactive sends.
func (a *Application) Client() *viber.Client { return a.client }

// Logger returns the application logger.
func (a *Application) Logger() *logger.Logger { return a.logger }

// Handler returns the HTTP handler serving all routes.
func (a *Application) Handler() http.Handler { return a.router }

func (a *Application) ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "alive",
		"version":    buildinfo.Version,
		"commit":     buildinfo.Commit,
		"build_date": buildinfo.BuildDate,
	})
}

// readinessCheck reports ready once the handler tables are sealed and the
// server is accepting connections.
func (a *Application) readinessCheck(c *gin.Context) {
	switch {
	case !a.dispatcher.Sealed():
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "handlers not sealed"})
	case !a.started.Load():
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "server not started"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// Run seals the dispatcher, serves HTTP until SIGINT or SIGTERM, and then
// shuts down gracefully.
func (a *Application) Run() error {
	if err := a.Start(context.Background()); err != nil {
		return err
	}

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	return a.Shutdown()
}

// Start seals the dispatcher, binds the listener and schedules webhook
// registration. It returns once the server is accepting connections.
func (a *Application) Start(ctx context.Context) error {
	a.dispatcher.Seal()

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	ctx, a.stop = context.WithCancel(ctx)
	a.started.Store(true)

	a.wg.Go(func() {
		a.logger.WithField("addr", ln.Addr().String()).Info("Starting HTTP server")
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	})

	if a.cfg.Bot.SetWebhookOnStartup {
		a.wg.Go(func() {
			a.registerWebhook(ctx)
		})
	}
	return nil
}

// registerWebhook waits for the server to settle, then points Viber at it.
// Viber probes the URL during set_webhook, so the listener must be up first.
func (a *Application) registerWebhook(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(a.cfg.Bot.WebhookStartupDelay):
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Bot.APITimeout)
	defer cancel()

	events, err := a.client.SetWebhook(callCtx, a.cfg.Bot.WebhookURL, a.cfg.Bot.WebhookEvents)
	if err != nil {
		a.logger.WithError(err).WithField("url", a.cfg.Bot.WebhookURL).Error("Failed to set webhook")
		sentry.CaptureException(err)
		return
	}
	a.logger.WithField("url", a.cfg.Bot.WebhookURL).
		WithField("event_types", events).
		Info("Webhook registered")
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// Shutdown stops the server, drains dispatched handlers, optionally unsets
// the webhook and flushes log and error sinks.
func (a *Application) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if a.stop != nil {
		a.stop()
	}

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}
	a.started.Store(false)

	a.logger.Info("Waiting for dispatched handlers to complete...")
	start := time.Now()
	if err := a.dispatcher.Wait(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Dispatched handlers did not finish before shutdown timeout")
	} else {
		a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("All dispatched handlers completed")
	}

	if a.cfg.Bot.UnsetWebhookOnShutdown {
		unsetCtx, unsetCancel := context.WithTimeout(context.Background(), a.cfg.Bot.APITimeout)
		if err := a.client.UnsetWebhook(unsetCtx); err != nil {
			a.logger.WithError(err).Warn("Failed to unset webhook")
		} else {
			a.logger.Info("Webhook unset")
		}
		unsetCancel()
	}

	a.wg.Wait()

	sentry.Flush(config.SentryFlush)
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

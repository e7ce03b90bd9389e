package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Bot (Required)
	EnvAuthToken  = "VIBER_AUTH_TOKEN"
	EnvBotName    = "VIBER_BOT_NAME"
	EnvWebhookURL = "VIBER_WEBHOOK_URL"

	// Bot
	EnvBotAvatar              = "VIBER_BOT_AVATAR"
	EnvWebhookEvents          = "VIBER_WEBHOOK_EVENTS"
	EnvCheckSignature         = "VIBER_CHECK_SIGNATURE"
	EnvSetWebhookOnStartup    = "VIBER_SET_WEBHOOK_ON_STARTUP"
	EnvUnsetWebhookOnShutdown = "VIBER_UNSET_WEBHOOK_ON_SHUTDOWN"
	EnvWebhookStartupDelay    = "VIBER_WEBHOOK_STARTUP_DELAY"
	EnvHandlerTimeout         = "VIBER_HANDLER_TIMEOUT"

	// Outbound API
	EnvAPIBaseURL = "VIBER_API_BASE_URL"
	EnvAPITimeout = "VIBER_API_TIMEOUT"
	EnvAPIRateRPS = "VIBER_API_RATE_RPS"

	// Server
	EnvHost            = "VIBER_HOST"
	EnvPort            = "VIBER_PORT"
	EnvLogLevel        = "VIBER_LOG_LEVEL"
	EnvShutdownTimeout = "VIBER_SHUTDOWN_TIMEOUT"

	// Sentry Feature
	EnvSentryDSN         = "VIBER_SENTRY_DSN"
	EnvSentryEnvironment = "VIBER_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "VIBER_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "VIBER_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "VIBER_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsUsername = "VIBER_METRICS_USERNAME"
	EnvMetricsPassword = "VIBER_METRICS_PASSWORD"
)

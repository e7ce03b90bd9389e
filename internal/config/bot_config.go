package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"
)

// DefaultAPIBaseURL is the Viber public account API root.
const DefaultAPIBaseURL = "https://chatapi.viber.com/pa"

// MaxBotNameLength is the exclusive upper bound on the sender name length.
const MaxBotNameLength = 28

// BotConfig holds the bot identity and webhook behaviour.
// It is created once at startup and shared read-only afterwards.
type BotConfig struct {
	// Identity, sent as the sender of every outbound message
	Name   string
	Avatar string

	// AuthToken authenticates outbound calls and keys the webhook signature.
	AuthToken string

	// WebhookURL is registered with Viber; its path is served locally.
	WebhookURL string
	// WebhookEvents is the optional explicit event subset passed to set_webhook.
	// Unknown tags are dropped with a warning at registration time.
	WebhookEvents []string

	CheckSignature         bool
	SetWebhookOnStartup    bool
	UnsetWebhookOnShutdown bool
	WebhookStartupDelay    time.Duration

	// HandlerTimeout bounds each dispatched handler run.
	HandlerTimeout time.Duration

	// Outbound API
	APIBaseURL string
	APITimeout time.Duration
	APIRateRPS float64
}

// DefaultBotConfig returns a BotConfig with every optional field defaulted.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		CheckSignature:         true,
		SetWebhookOnStartup:    true,
		UnsetWebhookOnShutdown: true,
		WebhookStartupDelay:    WebhookStartupDelay,
		HandlerTimeout:         HandlerProcessing,
		APIBaseURL:             DefaultAPIBaseURL,
		APITimeout:             APIRequest,
		APIRateRPS:             50,
	}
}

// Validate checks if the configuration is valid.
func (c *BotConfig) Validate() error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvBotName))
	} else if n := utf8.RuneCountInString(c.Name); n >= MaxBotNameLength {
		errs = append(errs, fmt.Errorf("%s must be shorter than %d characters, got %d", EnvBotName, MaxBotNameLength, n))
	}
	if c.AuthToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvAuthToken))
	}
	if c.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvWebhookURL))
	} else if err := validateHTTPURL(c.WebhookURL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvWebhookURL, err))
	}
	if err := validateHTTPURL(c.APIBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvAPIBaseURL, err))
	}
	if c.Avatar != "" {
		if err := validateHTTPURL(c.Avatar); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvBotAvatar, err))
		}
	}
	if c.WebhookStartupDelay < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvWebhookStartupDelay, c.WebhookStartupDelay))
	}
	if c.HandlerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvHandlerTimeout, c.HandlerTimeout))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvAPITimeout, c.APITimeout))
	}
	if c.APIRateRPS <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvAPIRateRPS, c.APIRateRPS))
	}

	return errors.Join(errs...)
}

// WebhookPath returns the local route for the webhook URL.
func (c *BotConfig) WebhookPath() string {
	u, err := url.Parse(c.WebhookURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

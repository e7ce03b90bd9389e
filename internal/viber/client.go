package viber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/garyellow/viber-bot-go/internal/config"
	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
	"github.com/garyellow/viber-bot-go/internal/logger"
	"github.com/garyellow/viber-bot-go/internal/metrics"
	"github.com/garyellow/viber-bot-go/internal/ratelimit"
	"github.com/garyellow/viber-bot-go/internal/sliceutil"
)

// UserAgent is sent with every API call.
const UserAgent = "viber-bot-go/1.0"

// API endpoints relative to the base URL.
const (
	EndpointSendMessage    = "send_message"
	EndpointSetWebhook     = "set_webhook"
	EndpointGetOnline      = "get_online"
	EndpointGetUserDetails = "get_user_details"
	EndpointGetAccountInfo = "get_account_info"
)

// Sender is the bot identity stamped on every outbound message.
type Sender struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// UserPresence is one entry of a get_online reply.
type UserPresence struct {
	ID                  string `json:"id"`
	OnlineStatus        int    `json:"online_status"`
	OnlineStatusMessage string `json:"online_status_message,omitempty"`
	LastOnline          int64  `json:"last_online,omitempty"`
}

// Client calls the Viber REST API. It is safe for concurrent use and
// shares one connection pool between all callers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
	sender     Sender
	limiter    *ratelimit.Limiter
	metrics    *metrics.Metrics
	logger     *logger.Logger

	userDetails singleflight.Group
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records API and rate limiter metrics.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) { c.logger = l.WithModule("viber") }
}

// WithLimiter replaces the outbound rate limiter. nil disables throttling.
func WithLimiter(l *ratelimit.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a client for the bot described by cfg.
func NewClient(cfg config.BotConfig, opts ...ClientOption) *Client {
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = config.APIRequest
	}
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     config.APIIdleConn,
			},
		},
		baseURL:   baseURL,
		authToken: cfg.AuthToken,
		sender:    Sender{Name: cfg.Name, Avatar: cfg.Avatar},
		logger:    logger.NewWithWriter("error", io.Discard),
	}
	if cfg.APIRateRPS > 0 {
		c.limiter = ratelimit.NewPerSecond(cfg.APIRateRPS)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sender returns the identity stamped on outbound messages.
func (c *Client) Sender() Sender {
	return c.sender
}

// Send validates msg and delivers it to the user with id to.
// It returns the platform message token.
//
// A message that fails validation is never sent; the returned error is an
// *errors.ValidationError. A non-zero API status yields *errors.TransportError.
func (c *Client) Send(ctx context.Context, to string, msg Message) (string, error) {
	payload, err := c.prepare(to, msg)
	if err != nil {
		return "", err
	}
	return c.deliver(ctx, payload)
}

// SendMany sends msgs concurrently to the same user. It fails as a whole if
// any send fails; tokens are returned in input order. Every message is
// validated before the first call goes out.
func (c *Client) SendMany(ctx context.Context, to string, msgs ...Message) ([]string, error) {
	payloads := make([][]byte, len(msgs))
	for i, msg := range msgs {
		p, err := c.prepare(to, msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		payloads[i] = p
	}

	tokens := make([]string, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range payloads {
		g.Go(func() error {
			token, err := c.deliver(gctx, p)
			if err != nil {
				return fmt.Errorf("message %d: %w", i, err)
			}
			tokens[i] = token
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// prepare validates msg and builds the send_message body.
func (c *Client) prepare(to string, msg Message) ([]byte, error) {
	if to == "" {
		return nil, domerrors.InvalidArgument("receiver is required")
	}
	if msg == nil {
		return nil, domerrors.InvalidArgument("message is nil")
	}
	if err := msg.Validate(); err != nil {
		c.logger.WithError(err).Error("Outbound message failed validation",
			"message_type", msg.Kind().String(),
		)
		return nil, err
	}

	payload, err := encodeMessage(msg)
	if err != nil {
		return nil, err
	}
	if payload, err = sjson.SetBytes(payload, "receiver", to); err != nil {
		return nil, fmt.Errorf("stamp receiver: %w", err)
	}
	if payload, err = sjson.SetBytes(payload, "sender", c.sender); err != nil {
		return nil, fmt.Errorf("stamp sender: %w", err)
	}
	return payload, nil
}

func (c *Client) deliver(ctx context.Context, payload []byte) (string, error) {
	raw, err := c.call(ctx, EndpointSendMessage, payload)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(raw, "message_token").String(), nil
}

// WebhookOption customizes a set_webhook call.
type WebhookOption func(*webhookRequest)

// WithSendName asks Viber to include the user name in callbacks.
func WithSendName(v bool) WebhookOption {
	return func(r *webhookRequest) { r.SendName = &v }
}

// WithSendPhoto asks Viber to include the user avatar in callbacks.
func WithSendPhoto(v bool) WebhookOption {
	return func(r *webhookRequest) { r.SendPhoto = &v }
}

type webhookRequest struct {
	URL        string      `json:"url"`
	EventTypes []EventKind `json:"event_types,omitempty"`
	SendName   *bool       `json:"send_name,omitempty"`
	SendPhoto  *bool       `json:"send_photo,omitempty"`
}

// SetWebhook registers url as the callback target and returns the event
// types Viber accepted. Tags in events outside the known set are dropped
// with a warning instead of failing the call; event_types is only sent
// when something is left.
func (c *Client) SetWebhook(ctx context.Context, url string, events []string, opts ...WebhookOption) ([]EventKind, error) {
	req := webhookRequest{URL: url}
	for _, tag := range events {
		kind, err := ParseEventKind(tag)
		if err != nil {
			c.logger.Warn("Dropping unknown webhook event type", "event_type", tag)
			continue
		}
		req.EventTypes = append(req.EventTypes, kind)
	}
	req.EventTypes = sliceutil.Unique(req.EventTypes)
	for _, opt := range opts {
		opt(&req)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode set_webhook: %w", err)
	}

	c.logger.Debug("Setting webhook", "url", url, "event_types", req.EventTypes)
	raw, err := c.call(ctx, EndpointSetWebhook, payload)
	if err != nil {
		return nil, err
	}

	var accepted []EventKind
	for _, v := range gjson.GetBytes(raw, "event_types").Array() {
		accepted = append(accepted, EventKind(v.String()))
	}
	return accepted, nil
}

// UnsetWebhook removes the webhook. It is SetWebhook with an empty URL.
func (c *Client) UnsetWebhook(ctx context.Context) error {
	c.logger.Debug("Unsetting webhook")
	_, err := c.SetWebhook(ctx, "", nil)
	return err
}

// GetUserPresence fetches the online status of up to MaxPresenceIDs
// subscribed users.
func (c *Client) GetUserPresence(ctx context.Context, ids []string) ([]UserPresence, error) {
	ids = sliceutil.Unique(ids)
	if len(ids) == 0 {
		return nil, domerrors.InvalidArgument("ids must not be empty")
	}
	if len(ids) > MaxPresenceIDs {
		return nil, domerrors.InvalidArgument("at most %d ids per request, got %d", MaxPresenceIDs, len(ids))
	}

	payload, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("encode get_online: %w", err)
	}
	raw, err := c.call(ctx, EndpointGetOnline, payload)
	if err != nil {
		return nil, err
	}

	var users []UserPresence
	if r := gjson.GetBytes(raw, "users"); r.Exists() {
		if err := json.Unmarshal([]byte(r.Raw), &users); err != nil {
			return nil, fmt.Errorf("decode get_online users: %w", err)
		}
	}
	return users, nil
}

// GetUserDetails fetches a user's profile. Viber allows two lookups per
// user per 12 hours, so concurrent lookups of the same id share one call.
func (c *Client) GetUserDetails(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, domerrors.InvalidArgument("user id is required")
	}

	v, err, shared := c.userDetails.Do(id, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		payload, err := json.Marshal(map[string]string{"id": id})
		if err != nil {
			return nil, fmt.Errorf("encode get_user_details: %w", err)
		}
		raw, err := c.call(ctx, EndpointGetUserDetails, payload)
		if err != nil {
			return nil, err
		}
		var u User
		if err := json.Unmarshal([]byte(gjson.GetBytes(raw, "user").Raw), &u); err != nil {
			return nil, fmt.Errorf("decode get_user_details user: %w", err)
		}
		return u, nil
	})
	if shared {
		c.metrics.RecordSingleflightDedup("user_details")
	}
	if err != nil {
		return nil, err
	}
	u := v.(User)
	return &u, nil
}

// GetAccountInfo returns the full decoded get_account_info reply.
func (c *Client) GetAccountInfo(ctx context.Context) (map[string]any, error) {
	return c.Post(ctx, EndpointGetAccountInfo, nil)
}

// Post calls endpoint with payload encoded as JSON and returns the decoded
// reply. A nil payload sends an empty object.
func (c *Client) Post(ctx context.Context, endpoint string, payload any) (map[string]any, error) {
	body := []byte("{}")
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode %s: %w", endpoint, err)
		}
	}
	raw, err := c.call(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

// call stamps the auth token, performs the request and checks the API status.
func (c *Client) call(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	start := time.Now()
	status := "error"
	defer func() {
		c.metrics.RecordAPIRequest(endpoint, status, time.Since(start).Seconds())
	}()

	body, err := sjson.SetBytes(body, "auth_token", c.authToken)
	if err != nil {
		return nil, fmt.Errorf("stamp auth token: %w", err)
	}

	if c.limiter != nil {
		waited, err := c.limiter.Wait(ctx)
		c.metrics.RecordRateLimiterWait("api", waited.Seconds())
		if err != nil {
			status = "throttled"
			return nil, fmt.Errorf("viber api %s: rate limit wait: %w", endpoint, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("viber api %s: request failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "http_error"
		return nil, fmt.Errorf("viber api %s: unexpected HTTP status %d", endpoint, resp.StatusCode)
	}

	raw, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("viber api %s: %w", endpoint, err)
	}

	code := gjson.GetBytes(raw, "status")
	if !code.Exists() {
		return nil, fmt.Errorf("viber api %s: reply has no status", endpoint)
	}
	if code.Int() != 0 {
		status = "api_error"
		decoded, _ := decodeObject(raw)
		terr := domerrors.NewTransportError(endpoint, int(code.Int()), gjson.GetBytes(raw, "status_message").String(), decoded)
		c.logger.WithError(terr).Error("Viber API call failed", "endpoint", endpoint, "status", terr.Status)
		return nil, terr
	}

	status = "success"
	return raw, nil
}

// readBody decodes a gzip or deflate encoded body. The transport does not
// decompress on its own because Accept-Encoding is set explicitly.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer func() { _ = zr.Close() }()
		reader = zr
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress deflate: %w", err)
		}
		defer func() { _ = zr.Close() }()
		reader = zr
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("reply is not valid JSON")
	}
	return raw, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return out, nil
}

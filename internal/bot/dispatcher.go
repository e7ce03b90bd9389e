package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyellow/viber-bot-go/internal/config"
	"github.com/garyellow/viber-bot-go/internal/ctxutil"
	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
	"github.com/garyellow/viber-bot-go/internal/logger"
	"github.com/garyellow/viber-bot-go/internal/metrics"
	"github.com/garyellow/viber-bot-go/internal/sentry"
	"github.com/garyellow/viber-bot-go/internal/viber"
)

// Dispatch routes, used as metric labels and in logs.
const (
	RouteCommand = "command"
	RouteDefault = "default"
	RouteHandler = "handler"
	RouteEvent   = "event"
)

// Dispatcher owns the command, handler and event callback tables.
//
// Tables are filled at setup time and frozen by Seal (or the first
// Dispatch); after that they are read without locking.
type Dispatcher struct {
	client         Sender
	logger         *logger.Logger
	metrics        *metrics.Metrics
	handlerTimeout time.Duration

	mu             sync.Mutex // guards registration only
	sealed         atomic.Bool
	commands       []command
	defaultCommand HandlerFunc
	handlers       map[viber.MessageKind]HandlerFunc
	callbacks      map[viber.EventKind]EventFunc

	tasks sync.WaitGroup
}

// DispatcherConfig holds configuration for creating a new Dispatcher.
type DispatcherConfig struct {
	Client         Sender
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	HandlerTimeout time.Duration // default config.HandlerProcessing
}

// NewDispatcher creates a dispatcher whose handler and callback tables are
// pre-filled with logging no-ops.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = logger.NewWithWriter("error", io.Discard)
	}
	timeout := cfg.HandlerTimeout
	if timeout <= 0 {
		timeout = config.HandlerProcessing
	}

	d := &Dispatcher{
		client:         cfg.Client,
		logger:         log.WithModule("dispatcher"),
		metrics:        cfg.Metrics,
		handlerTimeout: timeout,
		handlers:       make(map[viber.MessageKind]HandlerFunc),
		callbacks:      make(map[viber.EventKind]EventFunc),
	}
	for _, kind := range viber.AllMessageKinds() {
		if kind != viber.MessageText {
			d.handlers[kind] = d.noMessageHandler(kind)
		}
	}
	for _, kind := range viber.NonMessageEvents() {
		d.callbacks[kind] = d.noEventCallback(kind)
	}
	return d
}

func (d *Dispatcher) noMessageHandler(kind viber.MessageKind) HandlerFunc {
	return func(ctx context.Context, _ *Session) error {
		d.logger.DebugContext(ctx, "No handler registered for message type", "message_type", kind.String())
		return nil
	}
}

func (d *Dispatcher) noEventCallback(kind viber.EventKind) EventFunc {
	return func(ctx context.Context, _ *viber.Request) error {
		d.logger.DebugContext(ctx, "No callback registered for event", "event_type", kind.String())
		return nil
	}
}

// register runs fn under the registration lock unless the tables are sealed.
func (d *Dispatcher) register(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sealed.Load() {
		return domerrors.ErrRegistrationClosed
	}
	return fn()
}

// AddCommand appends a command. Patterns are matched case-insensitively
// anywhere in the text, in registration order; the first match wins.
func (d *Dispatcher) AddCommand(pattern string, h CommandFunc) error {
	if h == nil {
		return domerrors.InvalidArgument("nil handler for command %q", pattern)
	}
	c, err := compileCommand(pattern, h)
	if err != nil {
		return domerrors.InvalidArgument("%v", err)
	}
	return d.register(func() error {
		d.commands = append(d.commands, c)
		return nil
	})
}

// SetDefault sets the handler for text that matches no command.
func (d *Dispatcher) SetDefault(h HandlerFunc) error {
	if h == nil {
		return domerrors.InvalidArgument("nil default handler")
	}
	return d.register(func() error {
		d.defaultCommand = h
		return nil
	})
}

// AddHandler replaces the handler for a non-text message kind.
// Text messages are routed through commands instead.
func (d *Dispatcher) AddHandler(kind viber.MessageKind, h HandlerFunc) error {
	if !kind.Valid() {
		return domerrors.NewUnknownMessageKind(string(kind))
	}
	if kind == viber.MessageText {
		return domerrors.InvalidArgument("text messages are handled by commands")
	}
	if h == nil {
		return domerrors.InvalidArgument("nil handler for message type %s", kind)
	}
	return d.register(func() error {
		d.handlers[kind] = h
		return nil
	})
}

// SetEventCallback replaces the callback for a non-message event.
func (d *Dispatcher) SetEventCallback(kind viber.EventKind, h EventFunc) error {
	if !kind.Valid() {
		return domerrors.NewUnknownEventKind(string(kind))
	}
	if kind == viber.EventMessage {
		return domerrors.InvalidArgument("message events are routed through commands and handlers")
	}
	if h == nil {
		return domerrors.InvalidArgument("nil callback for event %s", kind)
	}
	return d.register(func() error {
		d.callbacks[kind] = h
		return nil
	})
}

func (d *Dispatcher) OnSubscribed(h EventFunc) error {
	return d.SetEventCallback(viber.EventSubscribed, h)
}

func (d *Dispatcher) OnUnsubscribed(h EventFunc) error {
	return d.SetEventCallback(viber.EventUnsubscribed, h)
}

func (d *Dispatcher) OnConversationStarted(h EventFunc) error {
	return d.SetEventCallback(viber.EventConversationStarted, h)
}

func (d *Dispatcher) OnDelivered(h EventFunc) error {
	return d.SetEventCallback(viber.EventDelivered, h)
}

func (d *Dispatcher) OnSeen(h EventFunc) error {
	return d.SetEventCallback(viber.EventSeen, h)
}

func (d *Dispatcher) OnFailed(h EventFunc) error {
	return d.SetEventCallback(viber.EventFailed, h)
}

// Seal freezes the tables. Later registrations fail with
// errors.ErrRegistrationClosed.
func (d *Dispatcher) Seal() {
	d.mu.Lock()
	d.sealed.Store(true)
	d.mu.Unlock()
}

// Sealed reports whether the tables are frozen.
func (d *Dispatcher) Sealed() bool {
	return d.sealed.Load()
}

// Dispatch selects at most one handler for req and starts it in its own
// goroutine. It never waits for the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, req *viber.Request) {
	if req == nil {
		return
	}
	if !d.sealed.Load() {
		d.Seal()
	}

	ctx = ctxutil.WithEvent(ctx, req.Event.String())
	if req.MessageToken != 0 {
		ctx = ctxutil.WithMessageToken(ctx, strconv.FormatInt(req.MessageToken, 10))
	}
	if id := req.Recipient().ID; id != "" {
		ctx = ctxutil.WithUserID(ctx, id)
	}

	if req.Event != viber.EventMessage {
		cb, ok := d.callbacks[req.Event]
		if !ok {
			d.logger.WarnContext(ctx, "Dropping request with unroutable event", "event_type", req.Event.String())
			return
		}
		d.spawn(ctx, RouteEvent, func(ctx context.Context) error {
			return cb(ctx, req)
		})
		return
	}

	if req.Message == nil {
		d.logger.WarnContext(ctx, "Dropping message event without message")
		return
	}
	session, err := SessionFor(d.client, req)
	if err != nil {
		d.logger.WithError(err).WarnContext(ctx, "Dropping message without sender")
		return
	}

	if req.Message.Type == viber.MessageText {
		if h, m, ok := resolveCommand(d.commands, req.Message.Text); ok {
			d.spawn(ctx, RouteCommand, func(ctx context.Context) error {
				return h(ctx, session, m)
			})
			return
		}
		if h := d.defaultCommand; h != nil {
			d.spawn(ctx, RouteDefault, func(ctx context.Context) error {
				return h(ctx, session)
			})
		}
		return
	}

	h, ok := d.handlers[req.Message.Type]
	if !ok {
		d.logger.WarnContext(ctx, "Dropping message with unroutable type", "message_type", req.Message.Type.String())
		return
	}
	d.spawn(ctx, RouteHandler, func(ctx context.Context) error {
		return h(ctx, session)
	})
}

// spawn runs fn in a tracked goroutine detached from the webhook request.
// Errors and panics are logged, counted and reported; they never reach
// the HTTP response and never crash the process.
func (d *Dispatcher) spawn(parent context.Context, route string, fn func(context.Context) error) {
	taskCtx := ctxutil.PreserveTracing(parent)
	d.metrics.DispatchStarted()

	d.tasks.Go(func() {
		ctx, cancel := context.WithTimeout(taskCtx, d.handlerTimeout)
		defer cancel()

		start := time.Now()
		status := "success"
		defer func() {
			if r := recover(); r != nil {
				status = "panic"
				err := fmt.Errorf("handler panic: %v", r)
				d.logger.WithError(err).ErrorContext(ctx, "Handler panicked",
					"route", route,
					"stack", string(debug.Stack()),
				)
				sentry.CaptureExceptionWithTags(ctx, err, d.tags(ctx, route))
			}
			d.metrics.RecordDispatch(route, status, time.Since(start).Seconds())
		}()

		if err := fn(ctx); err != nil {
			status = "error"
			if errors.Is(err, context.DeadlineExceeded) {
				status = "timeout"
			}
			d.logger.WithError(err).ErrorContext(ctx, "Handler failed",
				"route", route,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			sentry.CaptureExceptionWithTags(ctx, err, d.tags(ctx, route))
		}
	})
}

func (d *Dispatcher) tags(ctx context.Context, route string) map[string]string {
	return map[string]string{
		"route":   route,
		"event":   ctxutil.GetEvent(ctx),
		"user_id": ctxutil.GetUserID(ctx),
	}
}

// Wait blocks until every dispatched handler has returned or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

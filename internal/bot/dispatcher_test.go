package bot

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
	"github.com/garyellow/viber-bot-go/internal/logger"
	"github.com/garyellow/viber-bot-go/internal/metrics"
	"github.com/garyellow/viber-bot-go/internal/viber"
)

type dispatcherEnv struct {
	d       *Dispatcher
	sender  *fakeSender
	metrics *metrics.Metrics
	logs    *bytes.Buffer
}

func newDispatcherEnv(t *testing.T) *dispatcherEnv {
	t.Helper()
	logs := &bytes.Buffer{}
	sender := &fakeSender{}
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(DispatcherConfig{
		Client:         sender,
		Logger:         logger.NewWithWriter("debug", logs),
		Metrics:        m,
		HandlerTimeout: time.Second,
	})
	return &dispatcherEnv{d: d, sender: sender, metrics: m, logs: logs}
}

func (e *dispatcherEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.d.Wait(ctx))
}

func (e *dispatcherEnv) dispatched(route, status string) float64 {
	return testutil.ToFloat64(e.metrics.DispatchTotal.WithLabelValues(route, status))
}

func textRequest(userID, text string) *viber.Request {
	return &viber.Request{
		Event:        viber.EventMessage,
		MessageToken: 42,
		Sender:       &viber.User{ID: userID},
		Message:      &viber.InboundMessage{Type: viber.MessageText, Text: text},
	}
}

func TestDispatch_FirstMatchingCommandWins(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	var calls [3]atomic.Int32
	var got Match
	require.NoError(t, env.d.AddCommand(`^start`, func(context.Context, *Session, Match) error {
		calls[0].Add(1)
		return nil
	}))
	require.NoError(t, env.d.AddCommand(`weather in (?P<city>\w+)`, func(_ context.Context, _ *Session, m Match) error {
		calls[1].Add(1)
		got = m
		return nil
	}))
	require.NoError(t, env.d.AddCommand(`weather`, func(context.Context, *Session, Match) error {
		calls[2].Add(1)
		return nil
	}))
	require.NoError(t, env.d.SetDefault(func(context.Context, *Session) error {
		t.Error("default must not run when a command matches")
		return nil
	}))

	env.d.Dispatch(context.Background(), textRequest("u1", "What is the WEATHER in Taipei today?"))
	env.wait(t)

	assert.Equal(t, int32(0), calls[0].Load())
	assert.Equal(t, int32(1), calls[1].Load())
	assert.Equal(t, int32(0), calls[2].Load())
	assert.Equal(t, "WEATHER in Taipei", got.Text())
	assert.Equal(t, "Taipei", got.Group(1))
	assert.Equal(t, "Taipei", got.Named["city"])
	assert.Equal(t, "", got.Group(5))
	assert.Equal(t, 1.0, env.dispatched(RouteCommand, "success"))
}

func TestDispatch_PingEndToEnd(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	type call struct {
		recipient string
		match     Match
	}
	calls := make(chan call, 2)
	require.NoError(t, env.d.AddCommand("ping", func(ctx context.Context, s *Session, m Match) error {
		calls <- call{recipient: s.Recipient().ID, match: m}
		_, err := s.SendText(ctx, "pong")
		return err
	}))

	req, err := viber.ParseRequest([]byte(`{"event":"message","message":{"type":"text","text":"PING"},"sender":{"id":"u1"}}`))
	require.NoError(t, err)

	env.d.Dispatch(context.Background(), req)
	env.wait(t)

	require.Len(t, calls, 1)
	c := <-calls
	assert.Equal(t, "u1", c.recipient)
	assert.Equal(t, "PING", c.match.Text())
	assert.Equal(t, "PING", c.match.Input)

	sent := env.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "u1", sent[0].To)
	assert.Equal(t, "pong", sent[0].Msg.(viber.TextMessage).Text)
}

func TestDispatch_DefaultCommand(t *testing.T) {
	t.Parallel()

	t.Run("runs once when nothing matches", func(t *testing.T) {
		t.Parallel()
		env := newDispatcherEnv(t)
		var n atomic.Int32
		require.NoError(t, env.d.AddCommand("ping", func(context.Context, *Session, Match) error {
			t.Error("command must not match")
			return nil
		}))
		require.NoError(t, env.d.SetDefault(func(_ context.Context, s *Session) error {
			n.Add(1)
			assert.Equal(t, "hello", s.Text())
			return nil
		}))

		env.d.Dispatch(context.Background(), textRequest("u1", "hello"))
		env.wait(t)
		assert.Equal(t, int32(1), n.Load())
		assert.Equal(t, 1.0, env.dispatched(RouteDefault, "success"))
	})

	t.Run("no default is a silent no-op", func(t *testing.T) {
		t.Parallel()
		env := newDispatcherEnv(t)
		env.d.Dispatch(context.Background(), textRequest("u1", "hello"))
		env.wait(t)
		assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.DispatchInflight))
		assert.Equal(t, 0.0, env.dispatched(RouteDefault, "success"))
		assert.NotContains(t, env.logs.String(), `"level":"error"`)
	})
}

func TestDispatch_NonTextFallback(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	for _, kind := range viber.AllMessageKinds() {
		if kind == viber.MessageText {
			continue
		}
		env.d.Dispatch(context.Background(), &viber.Request{
			Event:   viber.EventMessage,
			Sender:  &viber.User{ID: "u1"},
			Message: &viber.InboundMessage{Type: kind},
		})
	}
	env.wait(t)

	assert.Equal(t, 8.0, env.dispatched(RouteHandler, "success"))
	assert.Contains(t, env.logs.String(), "No handler registered for message type")
	assert.NotContains(t, env.logs.String(), `"level":"error"`)
}

func TestDispatch_RegisteredHandler(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	var got atomic.Value
	require.NoError(t, env.d.AddHandler(viber.MessageLocation, func(_ context.Context, s *Session) error {
		got.Store(s.Request().Message.Location.Lat)
		return nil
	}))

	env.d.Dispatch(context.Background(), &viber.Request{
		Event:   viber.EventMessage,
		Sender:  &viber.User{ID: "u1"},
		Message: &viber.InboundMessage{Type: viber.MessageLocation, Location: &viber.Location{Lat: 25}},
	})
	env.wait(t)
	assert.Equal(t, 25.0, got.Load())
}

func TestDispatch_EventCallbacks(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	events := make(chan viber.EventKind, 8)
	record := func(_ context.Context, req *viber.Request) error {
		events <- req.Event
		return nil
	}
	require.NoError(t, env.d.OnSubscribed(record))
	require.NoError(t, env.d.OnUnsubscribed(record))
	require.NoError(t, env.d.OnConversationStarted(record))
	require.NoError(t, env.d.OnDelivered(record))
	require.NoError(t, env.d.OnSeen(record))
	require.NoError(t, env.d.OnFailed(record))
	require.NoError(t, env.d.SetEventCallback(viber.EventWebhook, record))

	for _, kind := range viber.NonMessageEvents() {
		env.d.Dispatch(context.Background(), &viber.Request{Event: kind, UserID: "u1"})
	}
	env.wait(t)
	close(events)

	var seen []viber.EventKind
	for k := range events {
		seen = append(seen, k)
	}
	assert.ElementsMatch(t, viber.NonMessageEvents(), seen)
	assert.Equal(t, 7.0, env.dispatched(RouteEvent, "success"))
}

func TestDispatch_DefaultEventCallbackIsNoop(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)
	env.d.Dispatch(context.Background(), &viber.Request{Event: viber.EventDelivered, UserID: "u1"})
	env.wait(t)
	assert.Equal(t, 1.0, env.dispatched(RouteEvent, "success"))
	assert.Contains(t, env.logs.String(), "No callback registered for event")
}

func TestDispatch_DropsMessageWithoutSender(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)
	require.NoError(t, env.d.SetDefault(func(context.Context, *Session) error {
		t.Error("handler must not run without a sender")
		return nil
	}))
	env.d.Dispatch(context.Background(), &viber.Request{
		Event:   viber.EventMessage,
		Message: &viber.InboundMessage{Type: viber.MessageText, Text: "x"},
	})
	env.d.Dispatch(context.Background(), nil)
	env.wait(t)
	assert.Contains(t, env.logs.String(), "Dropping message without sender")
}

func TestDispatch_IsFireAndForget(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, env.d.SetDefault(func(context.Context, *Session) error {
		close(started)
		<-release
		return nil
	}))

	returned := make(chan struct{})
	go func() {
		env.d.Dispatch(context.Background(), textRequest("u1", "hi"))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on the handler")
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, env.d.Wait(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.DispatchInflight))

	close(release)
	env.wait(t)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.DispatchInflight))
}

func TestDispatch_HandlerContextIsDetached(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	errCh := make(chan error, 1)
	require.NoError(t, env.d.SetDefault(func(ctx context.Context, _ *Session) error {
		time.Sleep(20 * time.Millisecond)
		errCh <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	env.d.Dispatch(ctx, textRequest("u1", "hi"))
	cancel()
	env.wait(t)

	assert.NoError(t, <-errCh, "canceling the webhook request must not cancel the handler")
}

func TestDispatch_HandlerTimeout(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(DispatcherConfig{Client: &fakeSender{}, Metrics: m, HandlerTimeout: 10 * time.Millisecond})
	require.NoError(t, d.SetDefault(func(ctx context.Context, _ *Session) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	d.Dispatch(context.Background(), textRequest("u1", "slow"))
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues(RouteDefault, "timeout")))
}

func TestDispatch_ErrorsAndPanicsAreSupervised(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	require.NoError(t, env.d.AddCommand("fail", func(context.Context, *Session, Match) error {
		return errors.New("boom")
	}))
	require.NoError(t, env.d.AddCommand("panic", func(context.Context, *Session, Match) error {
		panic("kaboom")
	}))
	require.NoError(t, env.d.AddCommand("invalid", func(ctx context.Context, s *Session, _ Match) error {
		_, err := s.SendText(ctx, "")
		return err
	}))

	env.d.Dispatch(context.Background(), textRequest("u1", "fail"))
	env.d.Dispatch(context.Background(), textRequest("u1", "panic"))
	env.d.Dispatch(context.Background(), textRequest("u1", "invalid"))
	env.wait(t)

	assert.Equal(t, 2.0, env.dispatched(RouteCommand, "error"))
	assert.Equal(t, 1.0, env.dispatched(RouteCommand, "panic"))

	logs := env.logs.String()
	assert.Contains(t, logs, "Handler failed")
	assert.Contains(t, logs, "boom")
	assert.Contains(t, logs, "Handler panicked")
	assert.Contains(t, logs, "kaboom")
	assert.Contains(t, logs, `"user_id":"u1"`)
}

func TestRegistration_Validation(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(DispatcherConfig{})
	noopCmd := func(context.Context, *Session, Match) error { return nil }
	noopHandler := func(context.Context, *Session) error { return nil }
	noopEvent := func(context.Context, *viber.Request) error { return nil }

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"nil command", d.AddCommand("x", nil), domerrors.ErrInvalidArgument},
		{"bad pattern", d.AddCommand("(", noopCmd), domerrors.ErrInvalidArgument},
		{"nil default", d.SetDefault(nil), domerrors.ErrInvalidArgument},
		{"unknown message kind", d.AddHandler("hologram", noopHandler), domerrors.ErrUnknownMessageKind},
		{"text handler", d.AddHandler(viber.MessageText, noopHandler), domerrors.ErrInvalidArgument},
		{"nil handler", d.AddHandler(viber.MessagePicture, nil), domerrors.ErrInvalidArgument},
		{"message callback", d.SetEventCallback(viber.EventMessage, noopEvent), domerrors.ErrInvalidArgument},
		{"unknown event", d.SetEventCallback("client_status", noopEvent), domerrors.ErrUnknownEventKind},
		{"nil callback", d.OnSubscribed(nil), domerrors.ErrInvalidArgument},
		{"valid command", d.AddCommand("ok", noopCmd), nil},
		{"valid handler", d.AddHandler(viber.MessageSticker, noopHandler), nil},
	}
	for _, tt := range tests {
		if tt.wantErr == nil {
			assert.NoError(t, tt.err, tt.name)
			continue
		}
		assert.ErrorIs(t, tt.err, tt.wantErr, tt.name)
	}
}

func TestSeal(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(DispatcherConfig{Client: &fakeSender{}})
	noop := func(context.Context, *Session) error { return nil }

	require.NoError(t, d.SetDefault(noop))
	assert.False(t, d.Sealed())

	d.Seal()
	assert.True(t, d.Sealed())
	assert.ErrorIs(t, d.SetDefault(noop), domerrors.ErrRegistrationClosed)
	assert.ErrorIs(t, d.AddCommand("x", func(context.Context, *Session, Match) error { return nil }), domerrors.ErrRegistrationClosed)
	assert.ErrorIs(t, d.AddHandler(viber.MessageVideo, noop), domerrors.ErrRegistrationClosed)
	assert.ErrorIs(t, d.OnSeen(func(context.Context, *viber.Request) error { return nil }), domerrors.ErrRegistrationClosed)
}

func TestDispatch_SealsTables(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(DispatcherConfig{Client: &fakeSender{}})
	d.Dispatch(context.Background(), &viber.Request{Event: viber.EventWebhook})
	require.NoError(t, d.Wait(context.Background()))
	assert.True(t, d.Sealed())
}

func TestDispatch_ConcurrentRequests(t *testing.T) {
	t.Parallel()
	env := newDispatcherEnv(t)

	var n atomic.Int32
	require.NoError(t, env.d.AddCommand("go", func(context.Context, *Session, Match) error {
		n.Add(1)
		return nil
	}))
	env.d.Seal()

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			env.d.Dispatch(context.Background(), textRequest("u1", "go"))
		})
	}
	wg.Wait()
	env.wait(t)
	assert.Equal(t, int32(50), n.Load())
}

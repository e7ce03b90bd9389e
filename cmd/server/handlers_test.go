package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/viber-bot-go/internal/bot"
	"github.com/garyellow/viber-bot-go/internal/viber"
)

type sent struct {
	to  string
	msg viber.Message
}

type fakeAPI struct {
	mu      sync.Mutex
	sent    []sent
	profile *viber.User
}

func (f *fakeAPI) Send(_ context.Context, to string, msg viber.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to: to, msg: msg})
	return "1", nil
}

func (f *fakeAPI) SendMany(ctx context.Context, to string, msgs ...viber.Message) ([]string, error) {
	var tokens []string
	for _, m := range msgs {
		tok, err := f.Send(ctx, to, m)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func (f *fakeAPI) GetUserDetails(_ context.Context, id string) (*viber.User, error) {
	if f.profile == nil {
		return nil, errors.New("no profile")
	}
	u := *f.profile
	u.ID = id
	return &u, nil
}

func (f *fakeAPI) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

func runDemo(t *testing.T, api *fakeAPI, reqs ...*viber.Request) []sent {
	t.Helper()
	d := bot.NewDispatcher(bot.DispatcherConfig{Client: api})
	require.NoError(t, registerHandlers(d, api))

	for _, req := range reqs {
		d.Dispatch(context.Background(), req)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
	return api.messages()
}

func textFrom(user, text string) *viber.Request {
	return &viber.Request{
		Event:   viber.EventMessage,
		Sender:  &viber.User{ID: user},
		Message: &viber.InboundMessage{Type: viber.MessageText, Text: text},
	}
}

func TestDemo_Ping(t *testing.T) {
	out := runDemo(t, &fakeAPI{}, textFrom("u1", "PING"))
	require.Len(t, out, 1)

	msg, ok := out[0].msg.(viber.TextMessage)
	require.True(t, ok)
	assert.Equal(t, "u1", out[0].to)
	assert.Equal(t, "pong", msg.Text)
	require.NotNil(t, msg.Keyboard)
	assert.Len(t, msg.Keyboard.Buttons, 4)
}

func TestDemo_Echo(t *testing.T) {
	out := runDemo(t, &fakeAPI{}, textFrom("u1", "echo hello there"))
	require.Len(t, out, 1)
	assert.Equal(t, "hello there", out[0].msg.(viber.TextMessage).Text)
}

func TestDemo_DefaultEchoesText(t *testing.T) {
	out := runDemo(t, &fakeAPI{}, textFrom("u1", "  good morning "))
	require.Len(t, out, 1)
	assert.Equal(t, "You said: good morning", out[0].msg.(viber.TextMessage).Text)
}

func TestDemo_WhoAmI(t *testing.T) {
	api := &fakeAPI{profile: &viber.User{Name: "John McClane", Country: "UK", Language: "en", PrimaryDeviceOS: "android 7.1"}}
	out := runDemo(t, api, textFrom("u1", "whoami"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0].msg.(viber.TextMessage).Text, "John McClane")
	assert.Contains(t, out[0].msg.(viber.TextMessage).Text, "android 7.1")
}

func TestDemo_WhoAmIFailureTellsUser(t *testing.T) {
	out := runDemo(t, &fakeAPI{}, textFrom("u1", "whoami"))
	require.Len(t, out, 1)
	assert.Equal(t, "Sorry, I could not load your profile right now.", out[0].msg.(viber.TextMessage).Text)
}

func TestDemo_Menu(t *testing.T) {
	out := runDemo(t, &fakeAPI{}, textFrom("u1", "menu"))
	require.Len(t, out, 1)

	msg, ok := out[0].msg.(viber.RichMediaMessage)
	require.True(t, ok)
	assert.Equal(t, 2, msg.MinAPIVersion)
	assert.Len(t, msg.RichMedia.Buttons, 3)
}

func TestDemo_NonTextHandlers(t *testing.T) {
	api := &fakeAPI{}
	out := runDemo(t, api,
		&viber.Request{
			Event:   viber.EventMessage,
			Sender:  &viber.User{ID: "u1"},
			Message: &viber.InboundMessage{Type: viber.MessageSticker, StickerID: 46105},
		},
		&viber.Request{
			Event:   viber.EventMessage,
			Sender:  &viber.User{ID: "u2"},
			Message: &viber.InboundMessage{Type: viber.MessageLocation, Location: &viber.Location{Lat: 25.0330, Lon: 121.5654}},
		},
	)
	require.Len(t, out, 2)

	byUser := map[string]viber.Message{}
	for _, s := range out {
		byUser[s.to] = s.msg
	}
	assert.Equal(t, 46105, byUser["u1"].(viber.StickerMessage).StickerID)
	assert.Equal(t, "You are at 25.03300, 121.56540", byUser["u2"].(viber.TextMessage).Text)
}

func TestDemo_Subscribed(t *testing.T) {
	out := runDemo(t, &fakeAPI{}, &viber.Request{Event: viber.EventSubscribed, User: &viber.User{ID: "u9"}})
	require.Len(t, out, 1)
	assert.Equal(t, "u9", out[0].to)
	assert.Contains(t, out[0].msg.(viber.TextMessage).Text, "subscribing")
}

package bot

import (
	"context"

	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
	"github.com/garyellow/viber-bot-go/internal/viber"
)

// Sender delivers outbound messages. *viber.Client implements it.
type Sender interface {
	Send(ctx context.Context, to string, msg viber.Message) (string, error)
	SendMany(ctx context.Context, to string, msgs ...viber.Message) ([]string, error)
}

// SendOption sets the common fields of an outbound message.
type SendOption func(*viber.Options)

// WithKeyboard attaches a custom keyboard.
func WithKeyboard(kb *viber.Keyboard) SendOption {
	return func(o *viber.Options) { o.Keyboard = kb }
}

// WithTrackingData attaches data echoed back in the user's reply.
func WithTrackingData(data string) SendOption {
	return func(o *viber.Options) { o.TrackingData = data }
}

// WithMinAPIVersion restricts delivery to clients supporting version v.
func WithMinAPIVersion(v int) SendOption {
	return func(o *viber.Options) { o.MinAPIVersion = v }
}

func buildOptions(opts []SendOption) viber.Options {
	var o viber.Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Session binds one conversation partner to the outbound client.
// It holds no state beyond that binding.
type Session struct {
	client    Sender
	recipient viber.User
	request   *viber.Request
}

// NewSession binds recipient directly, e.g. for a proactive broadcast.
func NewSession(client Sender, recipient viber.User) (*Session, error) {
	if client == nil {
		return nil, domerrors.InvalidArgument("session needs a client")
	}
	if recipient.ID == "" {
		return nil, domerrors.InvalidArgument("session needs a recipient id")
	}
	return &Session{client: client, recipient: recipient}, nil
}

// SessionFor binds the user behind an inbound request.
func SessionFor(client Sender, req *viber.Request) (*Session, error) {
	if req == nil {
		return nil, domerrors.InvalidArgument("session needs a request")
	}
	s, err := NewSession(client, req.Recipient())
	if err != nil {
		return nil, err
	}
	s.request = req
	return s, nil
}

// Recipient returns the bound user.
func (s *Session) Recipient() viber.User { return s.recipient }

// Request returns the inbound request, or nil for a directly bound session.
func (s *Session) Request() *viber.Request { return s.request }

// Text returns the inbound text message body, if any.
func (s *Session) Text() string {
	if s.request == nil {
		return ""
	}
	return s.request.Text()
}

// Send delivers msg and returns its message token.
func (s *Session) Send(ctx context.Context, msg viber.Message) (string, error) {
	token, err := s.client.Send(ctx, s.recipient.ID, msg)
	if err != nil {
		kind := "nil"
		if msg != nil {
			kind = msg.Kind().String()
		}
		return "", domerrors.NewWrapper("session", "send_"+kind).Wrapf(err, "failed to send %s message to %s", kind, s.recipient.ID)
	}
	return token, nil
}

// SendMany delivers msgs concurrently; it fails as a whole if any send fails.
func (s *Session) SendMany(ctx context.Context, msgs ...viber.Message) ([]string, error) {
	tokens, err := s.client.SendMany(ctx, s.recipient.ID, msgs...)
	if err != nil {
		return nil, domerrors.NewWrapper("session", "send_many").Wrapf(err, "failed to send %d messages to %s", len(msgs), s.recipient.ID)
	}
	return tokens, nil
}

func (s *Session) SendText(ctx context.Context, text string, opts ...SendOption) (string, error) {
	return s.Send(ctx, viber.TextMessage{Options: buildOptions(opts), Text: text})
}

func (s *Session) SendPicture(ctx context.Context, media, text, thumbnail string, opts ...SendOption) (string, error) {
	return s.Send(ctx, viber.PictureMessage{Options: buildOptions(opts), Media: media, Text: text, Thumbnail: thumbnail})
}

// SendVideo sends a video of size bytes; duration is in seconds and may be 0.
func (s *Session) SendVideo(ctx context.Context, media string, size int64, thumbnail string, duration int, opts ...SendOption) (string, error) {
	return s.Send(ctx, viber.VideoMessage{
		Options:   buildOptions(opts),
		Media:     media,
		Size:      size,
		Thumbnail: thumbnail,
		Duration:  duration,
	})
}

func (s *Session) SendFile(ctx context.Context, media string, size int64, fileName string, opts ...SendOption) (string, error) {
	return s.Send(ctx, viber.FileMessage{Options: buildOptions(opts), Media: media, Size: size, FileName: fileName})
}

func (s *Session) SendSticker(ctx context.Context, stickerID int, opts ...SendOption) (string, error) {
	return s.Send(ctx, viber.StickerMessage{Options: buildOptions(opts), StickerID: stickerID})
}

func (s *Session) SendContact(ctx context.Context, name, phoneNumber, avatar string, opts ...SendOption) (string, error) {
	return s.Send(ctx, viber.ContactMessage{
		Options: buildOptions(opts),
		Contact: viber.Contact{Name: name, PhoneNumber: phoneNumber, Avatar: avatar},
	})
}

func (s *Session) SendLocation(ctx context.Context, lat, lon float64, opts ...SendOption) (string, error) {
	return s.Send(ctx, viber.LocationMessage{Options: buildOptions(opts), Location: viber.Location{Lat: lat, Lon: lon}})
}

func (s *Session) SendURL(ctx context.Context, url string, opts ...SendOption) (string, error) {
	return s.Send(ctx, viber.URLMessage{Options: buildOptions(opts), Media: url})
}

// SendRichMedia sends a carousel. Unless overridden, it is only delivered to
// clients on API version 2 or later.
func (s *Session) SendRichMedia(ctx context.Context, carousel *viber.Carousel, altText string, opts ...SendOption) (string, error) {
	o := viber.Options{MinAPIVersion: 2}
	for _, opt := range opts {
		opt(&o)
	}
	return s.Send(ctx, viber.RichMediaMessage{Options: o, RichMedia: carousel, AltText: altText})
}

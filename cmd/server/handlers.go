package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyellow/viber-bot-go/internal/bot"
	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
	"github.com/garyellow/viber-bot-go/internal/viber"
)

// botAPI is the part of *viber.Client the demo handlers use.
type botAPI interface {
	bot.Sender
	GetUserDetails(ctx context.Context, id string) (*viber.User, error)
}

func mainKeyboard() *viber.Keyboard {
	return viber.NewKeyboard(
		viber.NewReplyButton("ping", "Ping"),
		viber.NewReplyButton("whoami", "Who am I?"),
		viber.NewReplyButton("menu", "Menu"),
		viber.NewLinkButton("https://developers.viber.com/docs/api/rest-bot-api/", "API docs"),
	)
}

func menuCarousel() *viber.Carousel {
	items := []struct{ title, body string }{
		{"Ping", "ping"},
		{"Who am I", "whoami"},
		{"Echo", "echo hello"},
	}
	buttons := make([]viber.Button, 0, len(items))
	for _, it := range items {
		b := viber.NewReplyButton(it.body, it.title)
		b.Rows = 2
		buttons = append(buttons, b)
	}
	return viber.NewCarousel(buttons...)
}

func registerHandlers(d *bot.Dispatcher, api botAPI) error {
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	add(d.AddCommand(`^ping$`, func(ctx context.Context, s *bot.Session, _ bot.Match) error {
		_, err := s.SendText(ctx, "pong", bot.WithKeyboard(mainKeyboard()))
		return err
	}))

	add(d.AddCommand(`^echo\s+(?P<text>.+)$`, func(ctx context.Context, s *bot.Session, m bot.Match) error {
		_, err := s.SendText(ctx, m.Named["text"])
		return err
	}))

	add(d.AddCommand(`^whoami$`, func(ctx context.Context, s *bot.Session, _ bot.Match) error {
		user, err := api.GetUserDetails(ctx, s.Recipient().ID)
		if err != nil {
			err = domerrors.NewWrapper("demo", "whoami").Wrap(err, "Sorry, I could not load your profile right now.")
			if _, sendErr := s.SendText(ctx, domerrors.GetUserMessage(err)); sendErr != nil {
				return errors.Join(err, sendErr)
			}
			return err
		}
		text := fmt.Sprintf("%s\ncountry: %s\nlanguage: %s\ndevice: %s",
			user.Name, user.Country, user.Language, user.PrimaryDeviceOS)
		_, err = s.SendText(ctx, text)
		return err
	}))

	add(d.AddCommand(`^menu$`, func(ctx context.Context, s *bot.Session, _ bot.Match) error {
		_, err := s.SendRichMedia(ctx, menuCarousel(), "Menu: ping, whoami, echo")
		return err
	}))

	add(d.SetDefault(func(ctx context.Context, s *bot.Session) error {
		_, err := s.SendText(ctx, "You said: "+strings.TrimSpace(s.Text()), bot.WithKeyboard(mainKeyboard()))
		return err
	}))

	add(d.AddHandler(viber.MessagePicture, func(ctx context.Context, s *bot.Session) error {
		msg := s.Request().Message
		_, err := s.SendPicture(ctx, msg.Media, "Nice picture", msg.Thumbnail)
		return err
	}))

	add(d.AddHandler(viber.MessageLocation, func(ctx context.Context, s *bot.Session) error {
		loc := s.Request().Message.Location
		if loc == nil {
			return errors.New("location message without coordinates")
		}
		_, err := s.SendText(ctx, fmt.Sprintf("You are at %.5f, %.5f", loc.Lat, loc.Lon))
		return err
	}))

	add(d.AddHandler(viber.MessageSticker, func(ctx context.Context, s *bot.Session) error {
		_, err := s.SendSticker(ctx, s.Request().Message.StickerID)
		return err
	}))

	add(d.OnSubscribed(func(ctx context.Context, req *viber.Request) error {
		s, err := bot.SessionFor(api, req)
		if err != nil {
			return err
		}
		_, err = s.SendText(ctx, "Thanks for subscribing! Try \"menu\".", bot.WithKeyboard(mainKeyboard()))
		return err
	}))

	return errors.Join(errs...)
}

package viber

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/sjson"

	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
)

// Message is an outbound message. Validate must pass before the message
// is handed to the transport.
type Message interface {
	Kind() MessageKind
	Validate() error
}

// Options are the fields every outbound message may carry.
type Options struct {
	Keyboard      *Keyboard `json:"keyboard,omitempty"`
	TrackingData  string    `json:"tracking_data,omitempty"`
	MinAPIVersion int       `json:"min_api_version,omitempty"`
}

func (o Options) validate() error {
	if o.Keyboard != nil {
		if err := o.Keyboard.Validate(); err != nil {
			return err
		}
	}
	if utf8.RuneCountInString(o.TrackingData) > MaxTrackingDataLength {
		return domerrors.NewValidationError("tracking_data", fmt.Sprintf("exceeds %d characters", MaxTrackingDataLength))
	}
	if o.MinAPIVersion < 0 {
		return domerrors.NewValidationError("min_api_version", "cannot be negative")
	}
	return nil
}

// TextMessage is a plain text message.
type TextMessage struct {
	Options
	Text string `json:"text"`
}

func (TextMessage) Kind() MessageKind { return MessageText }

func (m TextMessage) Validate() error {
	if m.Text == "" {
		return domerrors.NewValidationError("text", "is required")
	}
	if utf8.RuneCountInString(m.Text) > MaxTextLength {
		return domerrors.NewValidationError("text", fmt.Sprintf("exceeds %d characters", MaxTextLength))
	}
	return m.validate()
}

// PictureMessage is an image with an optional caption.
type PictureMessage struct {
	Options
	Media     string `json:"media"`
	Text      string `json:"text"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

func (PictureMessage) Kind() MessageKind { return MessagePicture }

func (m PictureMessage) Validate() error {
	if m.Media == "" {
		return domerrors.NewValidationError("media", "is required")
	}
	if utf8.RuneCountInString(m.Text) > MaxPictureTextLength {
		return domerrors.NewValidationError("text", fmt.Sprintf("exceeds %d characters", MaxPictureTextLength))
	}
	return m.validate()
}

// VideoMessage is a video link. Size is in bytes, Duration in seconds.
type VideoMessage struct {
	Options
	Media     string `json:"media"`
	Size      int64  `json:"size"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Text      string `json:"text,omitempty"`
}

func (VideoMessage) Kind() MessageKind { return MessageVideo }

func (m VideoMessage) Validate() error {
	if m.Media == "" {
		return domerrors.NewValidationError("media", "is required")
	}
	if m.Size <= 0 {
		return domerrors.NewValidationError("size", "must be positive")
	}
	if m.Duration < 0 {
		return domerrors.NewValidationError("duration", "cannot be negative")
	}
	return m.validate()
}

// FileMessage is a downloadable file.
type FileMessage struct {
	Options
	Media    string `json:"media"`
	Size     int64  `json:"size"`
	FileName string `json:"file_name"`
}

func (FileMessage) Kind() MessageKind { return MessageFile }

func (m FileMessage) Validate() error {
	if m.Media == "" {
		return domerrors.NewValidationError("media", "is required")
	}
	if m.Size <= 0 {
		return domerrors.NewValidationError("size", "must be positive")
	}
	if m.FileName == "" {
		return domerrors.NewValidationError("file_name", "is required")
	}
	if utf8.RuneCountInString(m.FileName) > MaxFileNameLength {
		return domerrors.NewValidationError("file_name", fmt.Sprintf("exceeds %d characters", MaxFileNameLength))
	}
	return m.validate()
}

// StickerMessage is a sticker by id.
type StickerMessage struct {
	Options
	StickerID int `json:"sticker_id"`
}

func (StickerMessage) Kind() MessageKind { return MessageSticker }

func (m StickerMessage) Validate() error {
	if m.StickerID <= 0 {
		return domerrors.NewValidationError("sticker_id", "must be positive")
	}
	return m.validate()
}

// ContactMessage shares a contact card.
type ContactMessage struct {
	Options
	Contact Contact `json:"contact"`
}

func (ContactMessage) Kind() MessageKind { return MessageContact }

func (m ContactMessage) Validate() error {
	if m.Contact.Name == "" {
		return domerrors.NewValidationError("contact.name", "is required")
	}
	if m.Contact.PhoneNumber == "" {
		return domerrors.NewValidationError("contact.phone_number", "is required")
	}
	return m.validate()
}

// LocationMessage shares a map location.
type LocationMessage struct {
	Options
	Location Location `json:"location"`
}

func (LocationMessage) Kind() MessageKind { return MessageLocation }

func (m LocationMessage) Validate() error {
	if m.Location.Lat < -90 || m.Location.Lat > 90 {
		return domerrors.NewValidationError("location.lat", fmt.Sprintf("must be within [-90,90], got %v", m.Location.Lat))
	}
	if m.Location.Lon < -180 || m.Location.Lon > 180 {
		return domerrors.NewValidationError("location.lon", fmt.Sprintf("must be within [-180,180], got %v", m.Location.Lon))
	}
	return m.validate()
}

// URLMessage sends a link.
type URLMessage struct {
	Options
	Media string `json:"media"`
}

func (URLMessage) Kind() MessageKind { return MessageURL }

func (m URLMessage) Validate() error {
	if m.Media == "" {
		return domerrors.NewValidationError("media", "is required")
	}
	if utf8.RuneCountInString(m.Media) > MaxURLLength {
		return domerrors.NewValidationError("media", fmt.Sprintf("exceeds %d characters", MaxURLLength))
	}
	return m.validate()
}

// RichMediaMessage sends a carousel. Clients older than API version 2
// cannot render it and fall back to AltText.
type RichMediaMessage struct {
	Options
	RichMedia *Carousel `json:"rich_media"`
	AltText   string    `json:"alt_text,omitempty"`
}

func (RichMediaMessage) Kind() MessageKind { return MessageRichMedia }

func (m RichMediaMessage) Validate() error {
	if m.RichMedia == nil {
		return domerrors.NewValidationError("rich_media", "is required")
	}
	if err := m.RichMedia.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(m.AltText) > MaxAltTextLength {
		return domerrors.NewValidationError("alt_text", fmt.Sprintf("exceeds %d characters", MaxAltTextLength))
	}
	return m.validate()
}

// encodeMessage renders msg with its "type" discriminator.
func encodeMessage(msg Message) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", msg.Kind(), err)
	}
	return sjson.SetBytes(raw, "type", string(msg.Kind()))
}

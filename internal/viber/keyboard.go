package viber

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"unicode/utf8"

	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
)

// ActionType is what tapping a button does.
type ActionType string

// Button actions. The platform default is reply.
const (
	ActionReply   ActionType = "reply"
	ActionOpenURL ActionType = "open-url"
	ActionNone    ActionType = "none"
)

// BgMediaType is the format of a button background.
type BgMediaType string

// Background media types. The platform default is picture.
const (
	BgMediaPicture BgMediaType = "picture"
	BgMediaGIF     BgMediaType = "gif"
)

// TextVAlign is the vertical alignment of button text.
type TextVAlign string

// Vertical alignments. The platform default is middle.
const (
	TextVAlignTop    TextVAlign = "top"
	TextVAlignMiddle TextVAlign = "middle"
	TextVAlignBottom TextVAlign = "bottom"
)

// TextHAlign is the horizontal alignment of button text.
type TextHAlign string

// Horizontal alignments. The platform default is center.
const (
	TextHAlignLeft   TextHAlign = "left"
	TextHAlignCenter TextHAlign = "center"
	TextHAlignRight  TextHAlign = "right"
)

// TextSize is the font size of button text.
type TextSize string

// Text sizes. The platform default is regular.
const (
	TextSizeSmall   TextSize = "small"
	TextSizeRegular TextSize = "regular"
	TextSizeLarge   TextSize = "large"
)

// DefaultUTM is appended to every open-url button unless overridden.
var DefaultUTM = map[string]string{
	"utm_campaign": "viber",
	"utm_medium":   "link",
	"utm_source":   "social-networks",
}

// Button is one cell of a Keyboard or Carousel.
// Zero values mean "platform default" and are omitted on the wire,
// except Columns and Rows which are always sent.
type Button struct {
	ActionBody  string
	ActionType  ActionType
	Columns     int // 1-6, default 6
	Rows        int // default 1
	Silent      bool
	Image       string
	Text        string
	TextVAlign  TextVAlign
	TextHAlign  TextHAlign
	TextSize    TextSize
	TextOpacity int // 1-100, 0 is unset
	BgMedia     string
	BgMediaType BgMediaType
	BgColor     string
	BgLoop      bool

	// UTM replaces DefaultUTM for an open-url button. NoUTM disables it.
	UTM   map[string]string
	NoUTM bool
}

// NewReplyButton returns a button that sends body back to the bot.
func NewReplyButton(body, text string) Button {
	return Button{ActionBody: body, ActionType: ActionReply, Text: text}
}

// NewLinkButton returns a button that opens rawURL.
func NewLinkButton(rawURL, text string) Button {
	return Button{ActionBody: rawURL, ActionType: ActionOpenURL, Text: text}
}

// Validate checks the button against the platform constraints.
func (b Button) Validate() error {
	if b.Text == "" && b.BgMedia == "" && b.Image == "" && b.BgColor == "" {
		return domerrors.NewValidationError("button", "needs at least one of text, bg_media, image, bg_color")
	}
	if b.ActionBody == "" {
		return domerrors.NewValidationError("button.action_body", "is required")
	}
	if b.Columns < 0 || b.Columns > MaxButtonColumns {
		return domerrors.NewValidationError("button.columns", fmt.Sprintf("must be 1-%d, got %d", MaxButtonColumns, b.Columns))
	}
	if b.Rows < 0 || b.Rows > MaxCarouselGroupRows {
		return domerrors.NewValidationError("button.rows", fmt.Sprintf("must be 1-%d, got %d", MaxCarouselGroupRows, b.Rows))
	}
	if b.TextOpacity < 0 || b.TextOpacity > MaxTextOpacity {
		return domerrors.NewValidationError("button.text_opacity", fmt.Sprintf("must be 1-%d, got %d", MaxTextOpacity, b.TextOpacity))
	}
	if b.ActionType != "" && !slices.Contains([]ActionType{ActionReply, ActionOpenURL, ActionNone}, b.ActionType) {
		return domerrors.NewValidationError("button.action_type", fmt.Sprintf("unknown value %q", b.ActionType))
	}
	if b.ActionType == ActionOpenURL {
		if _, err := url.Parse(b.ActionBody); err != nil {
			return domerrors.NewValidationError("button.action_body", "must be a valid URL for open-url")
		}
	} else if utf8.RuneCountInString(b.ActionBody) > MaxActionBodyLength {
		return domerrors.NewValidationError("button.action_body", fmt.Sprintf("exceeds %d characters", MaxActionBodyLength))
	}
	if b.TextVAlign != "" && !slices.Contains([]TextVAlign{TextVAlignTop, TextVAlignMiddle, TextVAlignBottom}, b.TextVAlign) {
		return domerrors.NewValidationError("button.text_v_align", fmt.Sprintf("unknown value %q", b.TextVAlign))
	}
	if b.TextHAlign != "" && !slices.Contains([]TextHAlign{TextHAlignLeft, TextHAlignCenter, TextHAlignRight}, b.TextHAlign) {
		return domerrors.NewValidationError("button.text_h_align", fmt.Sprintf("unknown value %q", b.TextHAlign))
	}
	if b.TextSize != "" && !slices.Contains([]TextSize{TextSizeSmall, TextSizeRegular, TextSizeLarge}, b.TextSize) {
		return domerrors.NewValidationError("button.text_size", fmt.Sprintf("unknown value %q", b.TextSize))
	}
	if b.BgMediaType != "" && b.BgMediaType != BgMediaPicture && b.BgMediaType != BgMediaGIF {
		return domerrors.NewValidationError("button.bg_media_type", fmt.Sprintf("unknown value %q", b.BgMediaType))
	}
	return nil
}

// actionBody returns ActionBody with UTM parameters applied for open-url.
func (b Button) actionBody() string {
	if b.ActionType != ActionOpenURL || b.NoUTM {
		return b.ActionBody
	}
	params := b.UTM
	if params == nil {
		params = DefaultUTM
	}
	return appendQuery(b.ActionBody, params)
}

// appendQuery sets params on rawURL, replacing existing values.
// rawURL is returned unchanged if it does not parse.
func appendQuery(rawURL string, params map[string]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type buttonWire struct {
	ActionBody  string      `json:"ActionBody"`
	ActionType  ActionType  `json:"ActionType,omitempty"`
	Columns     int         `json:"Columns"`
	Rows        int         `json:"Rows"`
	Silent      bool        `json:"Silent,omitempty"`
	Image       string      `json:"Image,omitempty"`
	Text        string      `json:"Text,omitempty"`
	TextVAlign  TextVAlign  `json:"TextVAlign,omitempty"`
	TextHAlign  TextHAlign  `json:"TextHAlign,omitempty"`
	TextSize    TextSize    `json:"TextSize,omitempty"`
	TextOpacity int         `json:"TextOpacity,omitempty"`
	BgMedia     string      `json:"BgMedia,omitempty"`
	BgMediaType BgMediaType `json:"BgMediaType,omitempty"`
	BgColor     string      `json:"BgColor,omitempty"`
	BgLoop      bool        `json:"BgLoop,omitempty"`
}

// MarshalJSON emits the platform's CamelCase keys with defaults applied.
func (b Button) MarshalJSON() ([]byte, error) {
	w := buttonWire{
		ActionBody:  b.actionBody(),
		ActionType:  b.ActionType,
		Columns:     b.Columns,
		Rows:        b.Rows,
		Silent:      b.Silent,
		Image:       b.Image,
		Text:        b.Text,
		TextVAlign:  b.TextVAlign,
		TextHAlign:  b.TextHAlign,
		TextSize:    b.TextSize,
		TextOpacity: b.TextOpacity,
		BgMedia:     b.BgMedia,
		BgMediaType: b.BgMediaType,
		BgColor:     b.BgColor,
		BgLoop:      b.BgLoop,
	}
	if w.Columns == 0 {
		w.Columns = MaxButtonColumns
	}
	if w.Rows == 0 {
		w.Rows = 1
	}
	return json.Marshal(w)
}

// Keyboard is a custom input panel that replaces the device keyboard.
type Keyboard struct {
	Buttons       []Button
	BgColor       string
	DefaultHeight bool
}

// NewKeyboard returns a keyboard holding a copy of buttons.
func NewKeyboard(buttons ...Button) *Keyboard {
	return &Keyboard{Buttons: slices.Clone(buttons)}
}

// AddButton appends a button.
func (k *Keyboard) AddButton(b Button) *Keyboard {
	k.Buttons = append(k.Buttons, b)
	return k
}

// Validate checks every button.
func (k *Keyboard) Validate() error {
	if len(k.Buttons) == 0 {
		return domerrors.NewValidationError("keyboard.buttons", "must not be empty")
	}
	for i, b := range k.Buttons {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("keyboard button %d: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON emits {"Type":"keyboard","Buttons":[...]} plus the optional fields.
func (k *Keyboard) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type          string   `json:"Type"`
		Buttons       []Button `json:"Buttons"`
		BgColor       string   `json:"BgColor,omitempty"`
		DefaultHeight bool     `json:"DefaultHeight,omitempty"`
	}{
		Type:          "keyboard",
		Buttons:       nonNil(k.Buttons),
		BgColor:       k.BgColor,
		DefaultHeight: k.DefaultHeight,
	})
}

// Carousel is the rich media payload: a scrollable list of button groups.
type Carousel struct {
	Buttons             []Button
	ButtonsGroupColumns int // 1-6, default 6
	ButtonsGroupRows    int // 1-7, default 6
}

// NewCarousel returns a carousel with the default group size.
func NewCarousel(buttons ...Button) *Carousel {
	return &Carousel{Buttons: slices.Clone(buttons)}
}

// Validate checks the group size and every button.
func (c *Carousel) Validate() error {
	if len(c.Buttons) == 0 {
		return domerrors.NewValidationError("rich_media.buttons", "carousel needs at least one button")
	}
	if c.ButtonsGroupColumns < 0 || c.ButtonsGroupColumns > MaxCarouselGroupColumns {
		return domerrors.NewValidationError("rich_media.buttons_group_columns",
			fmt.Sprintf("must be 1-%d, got %d", MaxCarouselGroupColumns, c.ButtonsGroupColumns))
	}
	if c.ButtonsGroupRows < 0 || c.ButtonsGroupRows > MaxCarouselGroupRows {
		return domerrors.NewValidationError("rich_media.buttons_group_rows",
			fmt.Sprintf("must be 1-%d, got %d", MaxCarouselGroupRows, c.ButtonsGroupRows))
	}
	for i, b := range c.Buttons {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("carousel button %d: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON emits the CamelCase rich_media object with defaults applied.
func (c *Carousel) MarshalJSON() ([]byte, error) {
	cols, rows := c.ButtonsGroupColumns, c.ButtonsGroupRows
	if cols == 0 {
		cols = MaxCarouselGroupColumns
	}
	if rows == 0 {
		rows = 6
	}
	return json.Marshal(struct {
		Type                string   `json:"Type"`
		ButtonsGroupColumns int      `json:"ButtonsGroupColumns"`
		ButtonsGroupRows    int      `json:"ButtonsGroupRows"`
		Buttons             []Button `json:"Buttons"`
	}{
		Type:                "rich_media",
		ButtonsGroupColumns: cols,
		ButtonsGroupRows:    rows,
		Buttons:             nonNil(c.Buttons),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

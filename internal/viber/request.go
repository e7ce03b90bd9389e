package viber

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformedRequest is returned for a callback body that is not a
// well-formed Viber request.
var ErrMalformedRequest = errors.New("malformed viber request")

// User is a Viber user as it appears in callbacks and get_user_details.
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Avatar          string `json:"avatar,omitempty"`
	Country         string `json:"country,omitempty"`
	Language        string `json:"language,omitempty"`
	APIVersion      int    `json:"api_version,omitempty"`
	PrimaryDeviceOS string `json:"primary_device_os,omitempty"`
	ViberVersion    string `json:"viber_version,omitempty"`
	DeviceType      string `json:"device_type,omitempty"`
	MCC             int    `json:"mcc,omitempty"`
	MNC             int    `json:"mnc,omitempty"`
}

// Location is a point on the map.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Contact is a shared phone book entry.
type Contact struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Avatar      string `json:"avatar,omitempty"`
}

// InboundMessage is the message payload of a message callback.
// Which fields are populated depends on Type.
type InboundMessage struct {
	Type         MessageKind     `json:"type"`
	Text         string          `json:"text,omitempty"`
	Media        string          `json:"media,omitempty"`
	Thumbnail    string          `json:"thumbnail,omitempty"`
	FileName     string          `json:"file_name,omitempty"`
	FileSize     int64           `json:"size,omitempty"`
	Duration     int             `json:"duration,omitempty"`
	StickerID    int             `json:"sticker_id,omitempty"`
	Location     *Location       `json:"location,omitempty"`
	Contact      *Contact        `json:"contact,omitempty"`
	TrackingData string          `json:"tracking_data,omitempty"`
	RichMedia    json.RawMessage `json:"rich_media,omitempty"`
}

// Request is a classified inbound callback. Event is fixed at parse time;
// the remaining fields are populated according to it.
type Request struct {
	Event        EventKind `json:"event"`
	Timestamp    int64     `json:"timestamp"`
	MessageToken int64     `json:"message_token,omitempty"`
	ChatHostname string    `json:"chat_hostname,omitempty"`

	// message
	Sender  *User           `json:"sender,omitempty"`
	Message *InboundMessage `json:"message,omitempty"`
	Silent  bool            `json:"silent,omitempty"`

	// subscribed, conversation_started
	User *User `json:"user,omitempty"`

	// delivered, seen, failed, unsubscribed
	UserID string `json:"user_id,omitempty"`

	// conversation_started
	Type       string `json:"type,omitempty"`
	Context    string `json:"context,omitempty"`
	Subscribed bool   `json:"subscribed,omitempty"`

	// failed
	Desc string `json:"desc,omitempty"`
}

// ParseRequest classifies and decodes a raw callback body.
// An unknown event tag or message type yields an *errors.UnknownKindError.
func ParseRequest(body []byte) (*Request, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedRequest)
	}

	tag := gjson.GetBytes(body, "event")
	if !tag.Exists() {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedRequest)
	}
	kind, err := ParseEventKind(tag.String())
	if err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	req.Event = kind

	if kind == EventMessage {
		if req.Message == nil {
			return nil, fmt.Errorf("%w: message event without message", ErrMalformedRequest)
		}
		mk, err := ParseMessageKind(string(req.Message.Type))
		if err != nil {
			return nil, err
		}
		req.Message.Type = mk
	}

	return &req, nil
}

// Recipient resolves the user on the other side of the conversation.
// It is the zero User for events that carry no user, such as webhook.
func (r *Request) Recipient() User {
	switch {
	case r.Sender != nil:
		return *r.Sender
	case r.User != nil:
		return *r.User
	case r.UserID != "":
		return User{ID: r.UserID}
	default:
		return User{}
	}
}

// Text returns the body of a text message, or "" for anything else.
func (r *Request) Text() string {
	if r.Message == nil || r.Message.Type != MessageText {
		return ""
	}
	return r.Message.Text
}

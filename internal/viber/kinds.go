// Package viber implements the Viber Bot API surface used by the bot:
// inbound callback parsing, outbound message types, keyboards, webhook
// signatures and the REST client.
package viber

import (
	"slices"

	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
)

// EventKind is the discriminator of an inbound callback.
type EventKind string

// Known event kinds.
const (
	EventSeen                EventKind = "seen"
	EventConversationStarted EventKind = "conversation_started"
	EventDelivered           EventKind = "delivered"
	EventMessage             EventKind = "message"
	EventSubscribed          EventKind = "subscribed"
	EventUnsubscribed        EventKind = "unsubscribed"
	EventFailed              EventKind = "failed"
	EventWebhook             EventKind = "webhook"
)

var (
	allEvents = []EventKind{
		EventSeen,
		EventConversationStarted,
		EventDelivered,
		EventMessage,
		EventSubscribed,
		EventUnsubscribed,
		EventFailed,
		EventWebhook,
	}
	nonMessageEvents   = slices.DeleteFunc(slices.Clone(allEvents), func(k EventKind) bool { return k == EventMessage })
	statusUpdateEvents = []EventKind{EventDelivered, EventFailed, EventSeen}
	subscriptionEvents = []EventKind{EventSubscribed, EventUnsubscribed}
	chatEvents         = []EventKind{EventConversationStarted, EventMessage, EventSubscribed}
)

// ParseEventKind classifies a raw event tag.
func ParseEventKind(tag string) (EventKind, error) {
	k := EventKind(tag)
	if !slices.Contains(allEvents, k) {
		return "", domerrors.NewUnknownEventKind(tag)
	}
	return k, nil
}

// AllEvents returns every known event kind.
func AllEvents() []EventKind { return slices.Clone(allEvents) }

// NonMessageEvents returns every kind delivered through event callbacks.
func NonMessageEvents() []EventKind { return slices.Clone(nonMessageEvents) }

// StatusUpdateEvents returns the message status kinds.
func StatusUpdateEvents() []EventKind { return slices.Clone(statusUpdateEvents) }

// SubscriptionEvents returns the subscription change kinds.
func SubscriptionEvents() []EventKind { return slices.Clone(subscriptionEvents) }

// ChatEvents returns the kinds a user triggers from the chat screen.
func ChatEvents() []EventKind { return slices.Clone(chatEvents) }

func (k EventKind) String() string { return string(k) }

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool { return slices.Contains(allEvents, k) }

// IsMessage reports whether k carries a user message.
func (k EventKind) IsMessage() bool { return k == EventMessage }

// IsStatusUpdate reports whether k is delivered, failed or seen.
func (k EventKind) IsStatusUpdate() bool { return slices.Contains(statusUpdateEvents, k) }

// IsSubscription reports whether k is subscribed or unsubscribed.
func (k EventKind) IsSubscription() bool { return slices.Contains(subscriptionEvents, k) }

// IsChat reports whether k is visible in the chat screen.
func (k EventKind) IsChat() bool { return slices.Contains(chatEvents, k) }

// MessageKind is the content type of an inbound or outbound message.
type MessageKind string

// Known message kinds.
const (
	MessageText      MessageKind = "text"
	MessageRichMedia MessageKind = "rich_media"
	MessageSticker   MessageKind = "sticker"
	MessageURL       MessageKind = "url"
	MessageLocation  MessageKind = "location"
	MessageContact   MessageKind = "contact"
	MessageFile      MessageKind = "file"
	MessagePicture   MessageKind = "picture"
	MessageVideo     MessageKind = "video"
)

var allMessageKinds = []MessageKind{
	MessageText,
	MessageRichMedia,
	MessageSticker,
	MessageURL,
	MessageLocation,
	MessageContact,
	MessageFile,
	MessagePicture,
	MessageVideo,
}

// ParseMessageKind classifies a raw message type.
func ParseMessageKind(tag string) (MessageKind, error) {
	k := MessageKind(tag)
	if !slices.Contains(allMessageKinds, k) {
		return "", domerrors.NewUnknownMessageKind(tag)
	}
	return k, nil
}

// AllMessageKinds returns every known message kind.
func AllMessageKinds() []MessageKind { return slices.Clone(allMessageKinds) }

func (k MessageKind) String() string { return string(k) }

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool { return slices.Contains(allMessageKinds, k) }

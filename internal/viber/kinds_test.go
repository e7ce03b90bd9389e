package viber

import (
	"errors"
	"slices"
	"testing"

	domerrors "github.com/garyellow/viber-bot-go/internal/errors"
)

func TestParseEventKind(t *testing.T) {
	t.Parallel()
	for _, tag := range []string{"seen", "conversation_started", "delivered", "message", "subscribed", "unsubscribed", "failed", "webhook"} {
		k, err := ParseEventKind(tag)
		if err != nil {
			t.Errorf("ParseEventKind(%q) error = %v", tag, err)
			continue
		}
		if k.String() != tag {
			t.Errorf("ParseEventKind(%q) = %q", tag, k)
		}
	}

	for _, tag := range []string{"", "bogus", "Message", "client_status"} {
		_, err := ParseEventKind(tag)
		if !errors.Is(err, domerrors.ErrUnknownEventKind) {
			t.Errorf("ParseEventKind(%q) error = %v, want ErrUnknownEventKind", tag, err)
		}
		var uk *domerrors.UnknownKindError
		if !errors.As(err, &uk) || uk.Value != tag {
			t.Errorf("ParseEventKind(%q) should carry the offending value, got %v", tag, err)
		}
	}
}

func TestEventSubsets(t *testing.T) {
	t.Parallel()

	if got := len(AllEvents()); got != 8 {
		t.Errorf("len(AllEvents()) = %d, want 8", got)
	}
	non := NonMessageEvents()
	if len(non) != 7 || slices.Contains(non, EventMessage) {
		t.Errorf("NonMessageEvents() = %v", non)
	}
	if got := SubscriptionEvents(); !slices.Equal(got, []EventKind{EventSubscribed, EventUnsubscribed}) {
		t.Errorf("SubscriptionEvents() = %v", got)
	}
	if got := ChatEvents(); !slices.Equal(got, []EventKind{EventConversationStarted, EventMessage, EventSubscribed}) {
		t.Errorf("ChatEvents() = %v", got)
	}

	tests := []struct {
		kind                            EventKind
		status, subscription, chat, msg bool
	}{
		{EventSeen, true, false, false, false},
		{EventDelivered, true, false, false, false},
		{EventFailed, true, false, false, false},
		{EventSubscribed, false, true, true, false},
		{EventUnsubscribed, false, true, false, false},
		{EventConversationStarted, false, false, true, false},
		{EventMessage, false, false, true, true},
		{EventWebhook, false, false, false, false},
	}
	for _, tt := range tests {
		if got := tt.kind.IsStatusUpdate(); got != tt.status {
			t.Errorf("%s.IsStatusUpdate() = %v", tt.kind, got)
		}
		if got := tt.kind.IsSubscription(); got != tt.subscription {
			t.Errorf("%s.IsSubscription() = %v", tt.kind, got)
		}
		if got := tt.kind.IsChat(); got != tt.chat {
			t.Errorf("%s.IsChat() = %v", tt.kind, got)
		}
		if got := tt.kind.IsMessage(); got != tt.msg {
			t.Errorf("%s.IsMessage() = %v", tt.kind, got)
		}
	}
}

func TestEventSubsetsAreCopies(t *testing.T) {
	t.Parallel()
	s := StatusUpdateEvents()
	s[0] = "mutated"
	if StatusUpdateEvents()[0] == "mutated" {
		t.Error("StatusUpdateEvents() exposed its backing array")
	}
}

func TestParseMessageKind(t *testing.T) {
	t.Parallel()
	for _, k := range AllMessageKinds() {
		got, err := ParseMessageKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseMessageKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseMessageKind("hologram"); !errors.Is(err, domerrors.ErrUnknownMessageKind) {
		t.Errorf("ParseMessageKind(hologram) error = %v", err)
	}
	if len(AllMessageKinds()) != 9 {
		t.Errorf("len(AllMessageKinds()) = %d, want 9", len(AllMessageKinds()))
	}
}

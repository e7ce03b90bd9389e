// Package bot routes classified Viber callbacks to registered handlers.
//
// Text messages go through an ordered command table with a fallback,
// other message kinds through a per-kind handler table, and every other
// event through a per-event callback table. Each selected handler runs in
// its own supervised goroutine after the webhook has been acknowledged.
package bot

import (
	"context"

	"github.com/garyellow/viber-bot-go/internal/viber"
)

// CommandFunc handles a text message matched by a command pattern.
type CommandFunc func(ctx context.Context, s *Session, m Match) error

// HandlerFunc handles a message without a pattern match: the default
// command and the non-text message handlers.
type HandlerFunc func(ctx context.Context, s *Session) error

// EventFunc handles a non-message callback.
type EventFunc func(ctx context.Context, req *viber.Request) error

// Match is the result of a command pattern search.
type Match struct {
	// Input is the full message text.
	Input string
	// Groups holds the whole match at index 0 followed by the capture groups.
	Groups []string
	// Named maps named capture groups to their values.
	Named map[string]string
}

// Text returns the matched substring.
func (m Match) Text() string {
	return m.Group(0)
}

// Group returns capture group i, or "" if it does not exist.
func (m Match) Group(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}
	return m.Groups[i]
}

package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestUserIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if userID := GetUserID(context.Background()); userID != "" {
			t.Errorf("Expected empty string, got %s", userID)
		}
	})

	t.Run("with user ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithUserID(context.Background(), "01234567890A=")
		if userID := GetUserID(ctx); userID != "01234567890A=" {
			t.Errorf("Expected userID 01234567890A=, got %s", userID)
		}
	})
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("Expected no request ID on empty context")
	}

	ctx := WithRequestID(context.Background(), "req-1")
	id, ok := GetRequestID(ctx)
	if !ok || id != "req-1" {
		t.Errorf("Expected req-1, got %q (ok=%v)", id, ok)
	}
}

func TestEventAndMessageToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if GetEvent(ctx) != "" || GetMessageToken(ctx) != "" {
		t.Error("Expected empty values on empty context")
	}

	ctx = WithEvent(ctx, "message")
	ctx = WithMessageToken(ctx, "4912661846655238145")
	if got := GetEvent(ctx); got != "message" {
		t.Errorf("Expected event message, got %s", got)
	}
	if got := GetMessageToken(ctx); got != "4912661846655238145" {
		t.Errorf("Expected token 4912661846655238145, got %s", got)
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithUserID(parent, "u1")
	parent = WithRequestID(parent, "req-1")
	parent = WithEvent(parent, "message")
	parent = WithMessageToken(parent, "42")
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Errorf("Detached context must not inherit cancellation, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("Detached context must not inherit deadline")
	}
	if GetUserID(detached) != "u1" {
		t.Error("user ID not preserved")
	}
	if id, _ := GetRequestID(detached); id != "req-1" {
		t.Error("request ID not preserved")
	}
	if GetEvent(detached) != "message" {
		t.Error("event not preserved")
	}
	if GetMessageToken(detached) != "42" {
		t.Error("message token not preserved")
	}
}

func TestPreserveTracing_Empty(t *testing.T) {
	t.Parallel()

	detached := PreserveTracing(context.Background())
	if GetUserID(detached) != "" {
		t.Error("expected no user ID")
	}
	if _, ok := GetRequestID(detached); ok {
		t.Error("expected no request ID")
	}
}

// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	userIDKey       contextKey = "ctxutil.userID"
	requestIDKey    contextKey = "ctxutil.requestID"
	eventKey        contextKey = "ctxutil.event"
	messageTokenKey contextKey = "ctxutil.messageToken"
)

// WithUserID adds a user ID to the context.
// The user ID is the Viber id of the conversation partner.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the user ID from the context.
// Returns the user ID if found, empty string otherwise.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(userIDKey); v != nil {
		if userID, ok := v.(string); ok && userID != "" {
			return userID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context for tracing.
// Request ID is generated per webhook request for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// WithEvent adds the inbound event kind to the context.
func WithEvent(ctx context.Context, event string) context.Context {
	return context.WithValue(ctx, eventKey, event)
}

// GetEvent retrieves the inbound event kind from the context.
func GetEvent(ctx context.Context) string {
	if v, ok := ctx.Value(eventKey).(string); ok {
		return v
	}
	return ""
}

// WithMessageToken adds the platform message token of the inbound callback.
func WithMessageToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, messageTokenKey, token)
}

// GetMessageToken retrieves the inbound message token from the context.
func GetMessageToken(ctx context.Context) string {
	if v, ok := ctx.Value(messageTokenKey).(string); ok {
		return v
	}
	return ""
}

// PreserveTracing creates a detached context that preserves tracing values.
// The new context is independent of the parent's cancellation and deadlines.
//
// Use for dispatched handlers, which keep running after the webhook
// has already been acknowledged.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if userID := GetUserID(ctx); userID != "" {
		newCtx = WithUserID(newCtx, userID)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}
	if event := GetEvent(ctx); event != "" {
		newCtx = WithEvent(newCtx, event)
	}
	if token := GetMessageToken(ctx); token != "" {
		newCtx = WithMessageToken(newCtx, token)
	}

	return newCtx
}

// Package errors provides domain-specific error types and sentinel errors
// for the webhook, dispatch and outbound API paths.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrValidation indicates an outbound message failed local validation.
	ErrValidation = errors.New("validation failed")

	// ErrTransport indicates the Viber API answered with a non-zero status.
	ErrTransport = errors.New("viber api error")

	// ErrUnknownEventKind indicates an inbound event tag outside the known set.
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrUnknownMessageKind indicates an inbound message type outside the known set.
	ErrUnknownMessageKind = errors.New("unknown message kind")

	// ErrInvalidArgument indicates caller misuse, e.g. an empty id list.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRegistrationClosed indicates a handler was registered after serving started.
	ErrRegistrationClosed = errors.New("registration closed")

	// ErrInvalidSignature indicates the webhook body did not match its signature.
	ErrInvalidSignature = errors.New("invalid signature")
)

// ValidationError represents outbound message validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// TransportError is returned when the API reports a non-zero status.
// Body holds the whole decoded response for diagnostics.
type TransportError struct {
	Endpoint      string
	Status        int
	StatusMessage string
	Body          map[string]any
}

func (e *TransportError) Error() string {
	if e.StatusMessage != "" {
		return fmt.Sprintf("viber api %s failed (status=%d): %s", e.Endpoint, e.Status, e.StatusMessage)
	}
	return fmt.Sprintf("viber api %s failed (status=%d): %v", e.Endpoint, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error {
	return ErrTransport
}

// NewTransportError creates a new transport error.
func NewTransportError(endpoint string, status int, statusMessage string, body map[string]any) *TransportError {
	return &TransportError{
		Endpoint:      endpoint,
		Status:        status,
		StatusMessage: statusMessage,
		Body:          body,
	}
}

// UnknownKindError reports a discriminator value outside a closed set.
type UnknownKindError struct {
	Kind  string // "event" or "message"
	Value string
	err   error
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown %s kind %q", e.Kind, e.Value)
}

func (e *UnknownKindError) Unwrap() error {
	return e.err
}

// NewUnknownEventKind creates an error for an unrecognized event tag.
func NewUnknownEventKind(value string) *UnknownKindError {
	return &UnknownKindError{Kind: "event", Value: value, err: ErrUnknownEventKind}
}

// NewUnknownMessageKind creates an error for an unrecognized message type.
func NewUnknownMessageKind(value string) *UnknownKindError {
	return &UnknownKindError{Kind: "message", Value: value, err: ErrUnknownMessageKind}
}

// InvalidArgument wraps ErrInvalidArgument with a description.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// IsValidation checks if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransport checks if err is a transport error.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsInvalidArgument checks if err is an invalid argument error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsUnknownKind checks if err reports an unknown event or message kind.
func IsUnknownKind(err error) bool {
	return errors.Is(err, ErrUnknownEventKind) || errors.Is(err, ErrUnknownMessageKind)
}

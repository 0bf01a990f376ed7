package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch layer.
var (
	// ErrAdapterNotFound is returned when delivering through an
	// unregistered adapter name.
	ErrAdapterNotFound = errors.New("adapter not found")

	// ErrAdapterRegistered is returned when registering a name twice.
	ErrAdapterRegistered = errors.New("adapter already registered")

	// ErrNilAdapter is returned when registering a nil adapter.
	ErrNilAdapter = errors.New("adapter cannot be nil")

	// ErrInvalidOptions is the sentinel all option validation failures match.
	ErrInvalidOptions = errors.New("invalid adapter options")

	// ErrDeliveryFailed is the sentinel all delivery failures match.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// OptionsError describes why an adapter rejected its options.
type OptionsError struct {
	// Adapter is the adapter name.
	Adapter string

	// Reason is a human-readable description of the problem.
	Reason string
}

// Error implements the error interface.
func (e *OptionsError) Error() string {
	return fmt.Sprintf("%s options: %s", e.Adapter, e.Reason)
}

// Is allows errors.Is to match OptionsError with ErrInvalidOptions.
func (e *OptionsError) Is(target error) bool {
	return target == ErrInvalidOptions
}

// DeliveryError wraps an adapter delivery failure, possibly after retries.
type DeliveryError struct {
	// Adapter is the adapter that failed.
	Adapter string

	// Attempts is how many delivery attempts were made.
	Attempts int

	// Err is the error from the last attempt.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s delivery failed after %d attempts: %v", e.Adapter, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s delivery failed: %v", e.Adapter, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match DeliveryError with ErrDeliveryFailed.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}

// StatusError is an HTTP response with a non-2xx status code.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Transient reports whether the status is worth retrying. Server-side
// failures are; client errors (4xx) are permanent.
func (e *StatusError) Transient() bool {
	return e.Code >= 500
}

package sigbus

import (
	"errors"
	"fmt"
)

// Sentinel errors for the bus.
var (
	// ErrBusNotRunning is returned when operations are attempted before
	// Start or after Stop.
	ErrBusNotRunning = errors.New("bus is not running")

	// ErrBusAlreadyRunning is returned when Start is called twice.
	ErrBusAlreadyRunning = errors.New("bus is already running")

	// ErrBusStopped is returned when a stopped bus is started again.
	// Stopped is terminal.
	ErrBusStopped = errors.New("bus is stopped")

	// ErrNilSignal is returned when publishing a nil signal.
	ErrNilSignal = errors.New("signal cannot be nil")

	// ErrInvalidSignal is returned when a signal is missing its id or type.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrDuplicateSignal is returned when publishing an id already in
	// the retained log window.
	ErrDuplicateSignal = errors.New("duplicate signal id")

	// ErrSubscriptionNotFound is returned for operations on an unknown
	// subscription id. Unsubscribe treats it as a benign no-op instead.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNotPersistent is returned when acknowledging a transient
	// subscription, which has no checkpoint to advance.
	ErrNotPersistent = errors.New("subscription is not persistent")

	// ErrSnapshotNotFound is returned when restoring an unknown snapshot.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrDeliveryQueueFull is reported on the error channel when a
	// subscription's delivery queue overflows.
	ErrDeliveryQueueFull = errors.New("delivery queue full")

	// ErrReplayGap is the sentinel all replay gap errors match.
	ErrReplayGap = errors.New("replay range partially evicted")

	// ErrRouting marks an internal routing inconsistency. It should be
	// unreachable; the bus treats it as fatal.
	ErrRouting = errors.New("internal routing inconsistency")
)

// ReplayGapError reports that a requested replay range starts before
// the oldest retained log entry, so part of it can no longer be
// redelivered.
type ReplayGapError struct {
	// SubscriptionID is the subscription requesting the replay, when known.
	SubscriptionID string

	// FromID is the requested start of the range.
	FromID string

	// OldestRetained is the oldest id still in the log.
	OldestRetained string
}

// Error implements the error interface.
func (e *ReplayGapError) Error() string {
	return fmt.Sprintf("replay from %s: earlier entries evicted, oldest retained is %s",
		e.FromID, e.OldestRetained)
}

// Is allows errors.Is to match ReplayGapError with ErrReplayGap.
func (e *ReplayGapError) Is(target error) bool {
	return target == ErrReplayGap
}

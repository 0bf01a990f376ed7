package journal

import (
	"errors"

	"github.com/dshills/sigbus/signal"
)

// Sentinel errors for journal stores.
var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("journal is closed")

	// ErrSnapshotCorrupt is returned when a snapshot fails its
	// fingerprint check.
	ErrSnapshotCorrupt = errors.New("snapshot fingerprint mismatch")
)

// Range selects a contiguous id range from a store.
// A zero FromID starts at the oldest entry; a zero ToID runs to the
// newest. Limit bounds the result size when positive.
type Range struct {
	FromID string
	ToID   string
	Limit  int
}

// Contains reports whether an id falls inside the range.
func (r Range) Contains(id string) bool {
	if r.FromID != "" && id < r.FromID {
		return false
	}
	if r.ToID != "" && id > r.ToID {
		return false
	}
	return true
}

// Store is the durable backend behind the bus log.
//
// Implementations must preserve append order and must be safe for
// concurrent use: the bus control loop appends while replays read.
type Store interface {
	// Append persists entries in order.
	Append(entries []*signal.Signal) error

	// Read returns the stored entries inside the range, oldest first.
	Read(r Range) ([]*signal.Signal, error)

	// Checkpoint records the id up to which delivery is acknowledged,
	// letting implementations prune durably delivered entries.
	Checkpoint(id string) error
}

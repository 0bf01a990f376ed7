package sigbus

import (
	"context"
	"iter"
)

// Replay is a finite, restartable sequence of historical signals drawn
// from a point-in-time view of the log. Iterating does not touch bus
// state, so a Replay can be consumed any number of times and survives
// the bus stopping.
type Replay struct {
	entries []*Signal
}

// Len returns the number of signals in the replay.
func (r *Replay) Len() int {
	return len(r.entries)
}

// All returns an iterator over the replayed signals in log order.
// Each call starts a fresh iteration.
func (r *Replay) All() iter.Seq[*Signal] {
	return func(yield func(*Signal) bool) {
		for _, sig := range r.entries {
			if !yield(sig) {
				return
			}
		}
	}
}

// Iter returns an iterator that additionally stops early when the
// context is cancelled. Cancellation has no side effects on the bus.
func (r *Replay) Iter(ctx context.Context) iter.Seq[*Signal] {
	return func(yield func(*Signal) bool) {
		for _, sig := range r.entries {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !yield(sig) {
				return
			}
		}
	}
}

// Signals returns the replayed signals as a slice in log order.
func (r *Replay) Signals() []*Signal {
	out := make([]*Signal, len(r.entries))
	copy(out, r.entries)
	return out
}

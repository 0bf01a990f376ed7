package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/dshills/sigbus/signal"
)

// Noop accepts and discards every signal. Intended for testing and for
// subscriptions whose only purpose is checkpoint tracking.
type Noop struct {
	delivered atomic.Uint64
}

// NewNoop creates a no-op adapter.
func NewNoop() *Noop {
	return &Noop{}
}

// Validate accepts any options.
func (*Noop) Validate(Options) error {
	return nil
}

// Deliver discards the signal.
func (a *Noop) Deliver(ctx context.Context, sig *signal.Signal, opts Options) error {
	a.delivered.Add(1)
	return nil
}

// Delivered returns how many signals have been discarded.
func (a *Noop) Delivered() uint64 {
	return a.delivered.Load()
}

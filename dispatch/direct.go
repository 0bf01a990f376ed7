package dispatch

import (
	"context"

	"github.com/dshills/sigbus/signal"
)

// Receiver is an addressable local recipient for direct delivery.
type Receiver interface {
	// Receive accepts one signal. Returning an error fails the delivery.
	Receive(ctx context.Context, sig *signal.Signal) error
}

// ReceiverFunc is a function adapter for Receiver.
type ReceiverFunc func(ctx context.Context, sig *signal.Signal) error

// Receive implements the Receiver interface.
func (f ReceiverFunc) Receive(ctx context.Context, sig *signal.Signal) error {
	return f(ctx, sig)
}

// ChanReceiver returns a Receiver that sends signals into ch, honoring
// context cancellation.
func ChanReceiver(ch chan<- *signal.Signal) Receiver {
	return ReceiverFunc(func(ctx context.Context, sig *signal.Signal) error {
		select {
		case ch <- sig:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Direct hands signals to an in-process Receiver without encoding.
// Options:
//
//	receiver  Receiver  (required) live target handle
type Direct struct{}

// NewDirect creates a direct delivery adapter.
func NewDirect() *Direct {
	return &Direct{}
}

// Validate requires a live receiver handle in the options.
func (*Direct) Validate(opts Options) error {
	if _, err := directReceiver(opts); err != nil {
		return err
	}
	return nil
}

// Deliver invokes the receiver with the signal, unencoded.
func (*Direct) Deliver(ctx context.Context, sig *signal.Signal, opts Options) error {
	recv, err := directReceiver(opts)
	if err != nil {
		return err
	}
	return recv.Receive(ctx, sig)
}

func directReceiver(opts Options) (Receiver, error) {
	v, ok := opts["receiver"]
	if !ok || v == nil {
		return nil, &OptionsError{Adapter: AdapterDirect, Reason: "receiver is required"}
	}
	recv, ok := v.(Receiver)
	if !ok || recv == nil {
		return nil, &OptionsError{Adapter: AdapterDirect, Reason: "receiver must implement dispatch.Receiver"}
	}
	return recv, nil
}

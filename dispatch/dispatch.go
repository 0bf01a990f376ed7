package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/sigbus/signal"
)

// Built-in adapter names.
const (
	AdapterDirect    = "direct"
	AdapterBroadcast = "broadcast"
	AdapterLogSink   = "logsink"
	AdapterNoop      = "noop"
	AdapterWebhook   = "webhook"
)

// Options carries adapter-specific configuration as an open map.
// Each adapter decodes and validates the keys it understands.
type Options map[string]any

// Config names an adapter and its options. It is the delivery target
// stored on a subscription.
type Config struct {
	// Adapter is the registered adapter name.
	Adapter string

	// Options is adapter-specific configuration.
	Options Options
}

// Adapter is a pluggable delivery strategy.
// Implementations must be safe for concurrent Deliver calls.
type Adapter interface {
	// Validate checks the options before first use. It is called at
	// subscription time so malformed targets are rejected before any
	// state mutation.
	Validate(opts Options) error

	// Deliver sends one signal. It must deliver or return an error,
	// never silently drop. The context carries the caller's timeout.
	Deliver(ctx context.Context, sig *signal.Signal, opts Options) error
}

// BatchAdapter is implemented by adapters with a batch fast path.
type BatchAdapter interface {
	Adapter

	// DeliverBatch sends a batch of signals in one round trip where the
	// transport allows it. The returned slice has one entry per signal.
	DeliverBatch(ctx context.Context, sigs []*signal.Signal, opts Options) []error
}

// Registry resolves adapter names to implementations.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter under the given name.
// Registering an existing name or a nil adapter is an error.
func (r *Registry) Register(name string, adapter Adapter) error {
	if adapter == nil {
		return ErrNilAdapter
	}
	if name == "" {
		return errors.New("adapter name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; exists {
		return ErrAdapterRegistered
	}
	r.adapters[name] = adapter
	return nil
}

// Lookup returns the adapter registered under name.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered adapter names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// Validate checks options against the named adapter without delivering.
func (r *Registry) Validate(name string, opts Options) error {
	adapter, ok := r.Lookup(name)
	if !ok {
		return ErrAdapterNotFound
	}
	return adapter.Validate(opts)
}

// Deliver sends one signal through the named adapter synchronously.
// The returned error, if any, is a *DeliveryError.
func (r *Registry) Deliver(ctx context.Context, sig *signal.Signal, name string, opts Options) error {
	adapter, ok := r.Lookup(name)
	if !ok {
		return &DeliveryError{Adapter: name, Attempts: 0, Err: ErrAdapterNotFound}
	}

	err := adapter.Deliver(ctx, sig, opts)
	if err == nil {
		return nil
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return err
	}
	return &DeliveryError{Adapter: name, Attempts: 1, Err: err}
}

// DeliverAsync sends one signal through the named adapter on its own
// goroutine and returns a Future for the result.
func (r *Registry) DeliverAsync(ctx context.Context, sig *signal.Signal, name string, opts Options) *Future {
	f := newFuture()
	go func() {
		f.complete(r.Deliver(ctx, sig, name, opts))
	}()
	return f
}

// DeliverBatch sends a batch of signals through the named adapter.
// Adapters implementing BatchAdapter get one call for the whole batch;
// everything else is delivered signal by signal. The returned slice has
// one entry per signal, nil on success.
func (r *Registry) DeliverBatch(ctx context.Context, sigs []*signal.Signal, name string, opts Options) []error {
	adapter, ok := r.Lookup(name)
	if !ok {
		errs := make([]error, len(sigs))
		for i := range errs {
			errs[i] = &DeliveryError{Adapter: name, Attempts: 0, Err: ErrAdapterNotFound}
		}
		return errs
	}

	if ba, ok := adapter.(BatchAdapter); ok {
		return ba.DeliverBatch(ctx, sigs, opts)
	}

	errs := make([]error, len(sigs))
	for i, sig := range sigs {
		errs[i] = r.Deliver(ctx, sig, name, opts)
	}
	return errs
}

// Future is the handle for an asynchronous delivery.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(err error) {
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the delivery finishes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the delivery finishes or the context is cancelled,
// then returns the delivery error.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the delivery error once the future is done.
// Calling Err before Done is closed returns nil.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

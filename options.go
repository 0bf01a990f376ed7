package sigbus

import (
	"log/slog"
	"time"

	"github.com/dshills/sigbus/dispatch"
	"github.com/dshills/sigbus/journal"
)

// Option configures a Bus.
type Option func(*config)

// config contains configuration for the bus.
type config struct {
	// maxLogSize bounds the retained log window.
	maxLogSize int

	// queueSize is each subscription's delivery queue capacity.
	queueSize int

	// deliveryTimeout is the per-delivery adapter timeout.
	deliveryTimeout time.Duration

	// errorBuffer is the capacity of the delivery failure channel.
	errorBuffer int

	// logger receives bus diagnostics.
	logger *slog.Logger

	// journal is the durable store behind the log.
	journal journal.Store

	// registry overrides the default adapter registry.
	registry *dispatch.Registry
}

// defaultConfig returns sensible default configuration.
func defaultConfig() config {
	return config{
		maxLogSize:      1024,
		queueSize:       256,
		deliveryTimeout: 5 * time.Second,
		errorBuffer:     64,
		logger:          slog.Default(),
	}
}

// WithMaxLogSize bounds the retained log window. When the log exceeds
// the bound, the oldest entries are evicted.
func WithMaxLogSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxLogSize = n
		}
	}
}

// WithQueueSize sets each subscription's delivery queue capacity.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithDeliveryTimeout sets the per-delivery adapter timeout.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.deliveryTimeout = d
		}
	}
}

// WithErrorBuffer sets the capacity of the Errors channel.
func WithErrorBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.errorBuffer = n
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithJournal sets the durable store behind the log. The default is an
// in-memory store.
func WithJournal(s journal.Store) Option {
	return func(c *config) {
		if s != nil {
			c.journal = s
		}
	}
}

// WithRegistry supplies a pre-built adapter registry. When set, the
// bus does not register its built-in adapters; the host owns the
// registry contents.
func WithRegistry(r *dispatch.Registry) Option {
	return func(c *config) {
		if r != nil {
			c.registry = r
		}
	}
}

// FilterFunc is a predicate applied to signals before delivery to a
// subscription. Return false to skip delivery.
type FilterFunc func(sig *Signal) bool

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeConfig)

// subscribeConfig contains configuration for one subscription.
type subscribeConfig struct {
	id         string
	priority   int
	persistent bool
	checkpoint string
	filter     FilterFunc
}

// WithSubscriptionID fixes the subscription id. Subscribing again with
// the same id updates the existing subscription's pattern and target
// atomically.
func WithSubscriptionID(id string) SubscribeOption {
	return func(c *subscribeConfig) {
		c.id = id
	}
}

// WithPriority sets the delivery priority. Higher values deliver first
// among simultaneous matches.
func WithPriority(p int) SubscribeOption {
	return func(c *subscribeConfig) {
		c.priority = p
	}
}

// Persistent marks the subscription as requiring acknowledgment. Its
// checkpoint only advances through Ack, and undelivered ranges can be
// replayed from the log.
func Persistent() SubscribeOption {
	return func(c *subscribeConfig) {
		c.persistent = true
	}
}

// WithCheckpoint seeds a persistent subscription's checkpoint, for
// subscribers reconnecting with a previously acknowledged position.
func WithCheckpoint(signalID string) SubscribeOption {
	return func(c *subscribeConfig) {
		c.checkpoint = signalID
	}
}

// WithFilter attaches a delivery predicate to the subscription.
func WithFilter(f FilterFunc) SubscribeOption {
	return func(c *subscribeConfig) {
		c.filter = f
	}
}

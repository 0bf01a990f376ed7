package signal

import (
	"time"

	"github.com/google/uuid"
)

// timeNow is a variable to allow testing with fixed timestamps.
var timeNow = time.Now

// Signal is an immutable event envelope.
// Create one with New; do not mutate a Signal after publishing it.
type Signal struct {
	// ID is a unique, time-orderable identifier assigned at creation.
	// Two signals with the same ID are treated as duplicates by
	// persistent-delivery logic.
	ID string `json:"id" msgpack:"id"`

	// Type is the dot-segmented classification of the event,
	// e.g. "orders.created". It drives routing.
	Type string `json:"type" msgpack:"type"`

	// Source identifies the producer that created the signal.
	Source string `json:"source" msgpack:"source"`

	// Subject optionally narrows the event's target identity.
	Subject string `json:"subject,omitempty" msgpack:"subject,omitempty"`

	// Time is when the signal was created.
	Time time.Time `json:"time" msgpack:"time"`

	// Data is the opaque payload. The bus never interprets it.
	Data map[string]any `json:"data,omitempty" msgpack:"data,omitempty"`

	// Dispatch optionally overrides pattern-based fan-out with a
	// point-to-point delivery target attached to the signal itself.
	Dispatch *Target `json:"dispatch,omitempty" msgpack:"dispatch,omitempty"`

	// Meta is a side channel for producer-attached context such as
	// causation/correlation ids or priority hints.
	Meta map[string]string `json:"meta,omitempty" msgpack:"meta,omitempty"`
}

// Target names a delivery adapter and its options.
type Target struct {
	Adapter string         `json:"adapter" msgpack:"adapter"`
	Options map[string]any `json:"options,omitempty" msgpack:"options,omitempty"`
}

// Option configures a Signal at creation time.
type Option func(*Signal)

// WithSubject sets the signal's subject.
func WithSubject(subject string) Option {
	return func(s *Signal) {
		s.Subject = subject
	}
}

// WithData sets the signal's payload.
func WithData(data map[string]any) Option {
	return func(s *Signal) {
		s.Data = data
	}
}

// WithMeta merges the given entries into the signal's meta map.
func WithMeta(meta map[string]string) Option {
	return func(s *Signal) {
		if s.Meta == nil {
			s.Meta = make(map[string]string, len(meta))
		}
		for k, v := range meta {
			s.Meta[k] = v
		}
	}
}

// WithDispatch attaches a point-to-point delivery target.
func WithDispatch(adapter string, options map[string]any) Option {
	return func(s *Signal) {
		s.Dispatch = &Target{Adapter: adapter, Options: options}
	}
}

// WithCorrelation sets the correlation id meta entry.
func WithCorrelation(id string) Option {
	return WithMeta(map[string]string{"correlation_id": id})
}

// WithCausation sets the causation id meta entry.
func WithCausation(id string) Option {
	return WithMeta(map[string]string{"causation_id": id})
}

// New creates a signal with a freshly assigned id and timestamp.
func New(sigType, source string, opts ...Option) *Signal {
	s := &Signal{
		ID:     NewID(),
		Type:   sigType,
		Source: source,
		Time:   timeNow(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a fresh time-ordered signal id.
//
// UUIDv7 ids from the same process compare lexicographically in
// creation order, including within the same millisecond.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// crypto/rand failure - fall back to a random id. It is still
		// unique, just not time-ordered.
		return uuid.NewString()
	}
	return id.String()
}

// Clone returns a deep copy of the signal. The copy shares no maps with
// the original, so callers that must hand a signal across an ownership
// boundary can do so without aliasing the payload.
func (s *Signal) Clone() *Signal {
	if s == nil {
		return nil
	}
	c := *s
	if s.Data != nil {
		c.Data = make(map[string]any, len(s.Data))
		for k, v := range s.Data {
			c.Data[k] = v
		}
	}
	if s.Meta != nil {
		c.Meta = make(map[string]string, len(s.Meta))
		for k, v := range s.Meta {
			c.Meta[k] = v
		}
	}
	if s.Dispatch != nil {
		d := *s.Dispatch
		if s.Dispatch.Options != nil {
			d.Options = make(map[string]any, len(s.Dispatch.Options))
			for k, v := range s.Dispatch.Options {
				d.Options[k] = v
			}
		}
		c.Dispatch = &d
	}
	return &c
}

// Before reports whether this signal was created before other, judged
// by id ordering.
func (s *Signal) Before(other *Signal) bool {
	if s == nil || other == nil {
		return false
	}
	return s.ID < other.ID
}

// Correlation returns the correlation id meta entry, if any.
func (s *Signal) Correlation() string {
	return s.Meta["correlation_id"]
}

// Causation returns the causation id meta entry, if any.
func (s *Signal) Causation() string {
	return s.Meta["causation_id"]
}

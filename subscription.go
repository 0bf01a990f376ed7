package sigbus

import (
	"github.com/dshills/sigbus/dispatch"
	"github.com/dshills/sigbus/journal"
	"github.com/dshills/sigbus/pattern"
)

// subscription is one entry in the bus's subscription table. All
// fields except the queue are touched only on the control loop;
// deliveries carry their own copy of the target, so the worker never
// reads mutable state.
type subscription struct {
	id       string
	pat      pattern.Pattern
	target   dispatch.Config
	priority int
	filter   FilterFunc

	// persistent subscriptions require acknowledgment; checkpoint is
	// the last acknowledged signal id, advanced monotonically by Ack.
	persistent bool
	checkpoint string

	// queue feeds this subscription's delivery worker. Closing it
	// stops the worker after it drains.
	queue chan delivery
}

// delivery is one unit of work for a subscription's worker. The target
// is captured at enqueue time so a concurrent re-subscribe cannot race
// with an in-flight delivery.
type delivery struct {
	sig    *Signal
	target dispatch.Config
}

// record converts the subscription to its serializable snapshot form.
func (s *subscription) record() journal.SubscriptionRecord {
	return journal.SubscriptionRecord{
		ID:         s.id,
		Pattern:    s.pat.String(),
		Adapter:    s.target.Adapter,
		Options:    s.target.Options,
		Priority:   s.priority,
		Persistent: s.persistent,
		Checkpoint: s.checkpoint,
	}
}

// SubscriptionInfo is the public view of a subscription.
type SubscriptionInfo struct {
	// ID is the subscription id.
	ID string

	// Pattern is the subscribed pattern.
	Pattern string

	// Target is the delivery configuration.
	Target dispatch.Config

	// Priority orders deliveries among simultaneous matches.
	Priority int

	// Persistent reports whether the subscription requires acks.
	Persistent bool

	// Checkpoint is the last acknowledged signal id, persistent only.
	Checkpoint string
}

func (s *subscription) info() SubscriptionInfo {
	return SubscriptionInfo{
		ID:         s.id,
		Pattern:    s.pat.String(),
		Target:     s.target,
		Priority:   s.priority,
		Persistent: s.persistent,
		Checkpoint: s.checkpoint,
	}
}

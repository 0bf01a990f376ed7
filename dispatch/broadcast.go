package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/dshills/sigbus/signal"
)

// Broadcaster is an in-process analogue of a process group: named
// groups of member channels that each get a copy of every signal sent
// to the group. It is safe for concurrent use.
type Broadcaster struct {
	mu     sync.RWMutex
	groups map[string]map[int]chan *signal.Signal
	nextID int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		groups: make(map[string]map[int]chan *signal.Signal),
	}
}

// Join adds a member to the named group and returns its signal channel
// along with a leave function. The channel is buffered with the given
// capacity (minimum 1).
func (b *Broadcaster) Join(group string, buffer int) (<-chan *signal.Signal, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *signal.Signal, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	members := b.groups[group]
	if members == nil {
		members = make(map[int]chan *signal.Signal)
		b.groups[group] = members
	}
	members[id] = ch
	b.mu.Unlock()

	leave := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if members, ok := b.groups[group]; ok {
			delete(members, id)
			if len(members) == 0 {
				delete(b.groups, group)
			}
		}
	}
	return ch, leave
}

// Members returns the current member count of a group.
func (b *Broadcaster) Members(group string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.groups[group])
}

// Send delivers the signal to every member of the group. A member whose
// buffer is full is skipped and reported; the remaining members still
// receive the signal.
func (b *Broadcaster) Send(ctx context.Context, group string, sig *signal.Signal) error {
	b.mu.RLock()
	members := make([]chan *signal.Signal, 0, len(b.groups[group]))
	for _, ch := range b.groups[group] {
		members = append(members, ch)
	}
	b.mu.RUnlock()

	var full int
	for _, ch := range members {
		select {
		case ch <- sig:
		case <-ctx.Done():
			return ctx.Err()
		default:
			full++
		}
	}
	if full > 0 {
		return fmt.Errorf("broadcast to %q: %d of %d members had full buffers", group, full, len(members))
	}
	return nil
}

// broadcastOptions is the decoded option set for the broadcast adapter.
type broadcastOptions struct {
	Group string `mapstructure:"group"`
}

// Broadcast fans a signal out to all members of a named group.
// Options:
//
//	group  string  (required) group name
type Broadcast struct {
	broadcaster *Broadcaster
}

// NewBroadcast creates a broadcast adapter backed by the given broadcaster.
func NewBroadcast(b *Broadcaster) *Broadcast {
	return &Broadcast{broadcaster: b}
}

// Validate requires a non-empty group name.
func (*Broadcast) Validate(opts Options) error {
	o, err := decodeBroadcastOptions(opts)
	if err != nil {
		return err
	}
	if o.Group == "" {
		return &OptionsError{Adapter: AdapterBroadcast, Reason: "group is required"}
	}
	return nil
}

// Deliver sends the signal to every current member of the group.
func (a *Broadcast) Deliver(ctx context.Context, sig *signal.Signal, opts Options) error {
	o, err := decodeBroadcastOptions(opts)
	if err != nil {
		return err
	}
	if o.Group == "" {
		return &OptionsError{Adapter: AdapterBroadcast, Reason: "group is required"}
	}
	return a.broadcaster.Send(ctx, o.Group, sig)
}

func decodeBroadcastOptions(opts Options) (broadcastOptions, error) {
	var o broadcastOptions
	if err := mapstructure.Decode(map[string]any(opts), &o); err != nil {
		return o, &OptionsError{Adapter: AdapterBroadcast, Reason: err.Error()}
	}
	return o, nil
}

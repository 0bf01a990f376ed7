package journal

import (
	"sync"

	"github.com/dshills/sigbus/signal"
)

// Memory is the default in-process Store. Entries live in a slice in
// append order; Checkpoint prunes entries at or below the checkpointed
// id once the store exceeds its soft capacity.
type Memory struct {
	mu         sync.RWMutex
	entries    []*signal.Signal
	checkpoint string
	capacity   int
	closed     bool
}

// NewMemory creates an in-memory store. A capacity of zero or less
// means unbounded; otherwise checkpointed entries are pruned once the
// store grows past capacity.
func NewMemory(capacity int) *Memory {
	return &Memory{capacity: capacity}
}

// Append persists entries in order.
func (m *Memory) Append(entries []*signal.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.entries = append(m.entries, entries...)
	m.prune()
	return nil
}

// Read returns the stored entries inside the range, oldest first.
func (m *Memory) Read(r Range) ([]*signal.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	var out []*signal.Signal
	for _, e := range m.entries {
		if !r.Contains(e.ID) {
			continue
		}
		out = append(out, e)
		if r.Limit > 0 && len(out) == r.Limit {
			break
		}
	}
	return out, nil
}

// Checkpoint records the acknowledged id and prunes eligible entries.
// Checkpoints only move forward.
func (m *Memory) Checkpoint(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if id > m.checkpoint {
		m.checkpoint = id
	}
	m.prune()
	return nil
}

// prune drops checkpointed entries while the store is over capacity.
// Caller holds the lock.
func (m *Memory) prune() {
	if m.capacity <= 0 || m.checkpoint == "" {
		return
	}
	for len(m.entries) > m.capacity && m.entries[0].ID <= m.checkpoint {
		m.entries = m.entries[1:]
	}
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// LastCheckpoint returns the most recently checkpointed id.
func (m *Memory) LastCheckpoint() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkpoint
}

// Close marks the store closed; further operations return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

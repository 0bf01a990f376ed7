package journal

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/dshills/sigbus/signal"
)

// SubscriptionRecord is the serializable form of a subscription, as
// captured in a snapshot.
type SubscriptionRecord struct {
	ID         string         `json:"id"`
	Pattern    string         `json:"pattern"`
	Adapter    string         `json:"adapter"`
	Options    map[string]any `json:"options,omitempty"`
	Priority   int            `json:"priority"`
	Persistent bool           `json:"persistent"`
	Checkpoint string         `json:"checkpoint,omitempty"`
}

// Snapshot captures the bus log window and subscription table at a
// point in time, for later inspection or restore.
type Snapshot struct {
	// ID uniquely identifies the snapshot.
	ID string `json:"id"`

	// Name is the caller-supplied label.
	Name string `json:"name"`

	// Time is when the snapshot was taken.
	Time time.Time `json:"time"`

	// EvictedThrough is the newest signal id evicted from the log
	// before the snapshot was taken. Restores carry it forward so
	// replay gap detection survives recovery.
	EvictedThrough string `json:"evicted_through,omitempty"`

	// Signals is the retained log window, oldest first.
	Signals []*signal.Signal `json:"signals"`

	// Subscriptions is the subscription table.
	Subscriptions []SubscriptionRecord `json:"subscriptions"`

	// Fingerprint is the xxhash of the snapshot content, used to
	// detect corruption on decode.
	Fingerprint uint64 `json:"fingerprint"`
}

// NewSnapshot builds a snapshot with a fresh id and fingerprint.
func NewSnapshot(name string, signals []*signal.Signal, subs []SubscriptionRecord, evictedThrough string) (*Snapshot, error) {
	s := &Snapshot{
		ID:             uuid.NewString(),
		Name:           name,
		Time:           time.Now(),
		EvictedThrough: evictedThrough,
		Signals:        signals,
		Subscriptions:  subs,
	}
	fp, err := s.fingerprint()
	if err != nil {
		return nil, err
	}
	s.Fingerprint = fp
	return s, nil
}

// fingerprint hashes the snapshot content with the fingerprint field
// zeroed. JSON map keys are emitted sorted, so the digest is stable.
func (s *Snapshot) fingerprint() (uint64, error) {
	shadow := *s
	shadow.Fingerprint = 0
	data, err := json.Marshal(&shadow)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// Verify recomputes the fingerprint and compares it to the stored one.
func (s *Snapshot) Verify() error {
	fp, err := s.fingerprint()
	if err != nil {
		return err
	}
	if fp != s.Fingerprint {
		return ErrSnapshotCorrupt
	}
	return nil
}

// Encode serializes the snapshot.
func (s *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot deserializes and verifies a snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.Verify(); err != nil {
		return nil, err
	}
	return &s, nil
}

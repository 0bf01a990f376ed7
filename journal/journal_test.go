package journal

import (
	"errors"
	"testing"

	"github.com/dshills/sigbus/signal"
)

func appendN(t *testing.T, m *Memory, n int) []*signal.Signal {
	t.Helper()
	sigs := make([]*signal.Signal, n)
	for i := range sigs {
		sigs[i] = signal.New("test.entry", "journal-test")
	}
	if err := m.Append(sigs); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	return sigs
}

func TestMemory_AppendRead(t *testing.T) {
	m := NewMemory(0)
	sigs := appendN(t, m, 5)

	got, err := m.Read(Range{})
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("Read returned %d entries, want 5", len(got))
	}
	for i := range sigs {
		if got[i].ID != sigs[i].ID {
			t.Errorf("entry %d: ID = %q, want %q (order must be preserved)", i, got[i].ID, sigs[i].ID)
		}
	}
}

func TestMemory_ReadRange(t *testing.T) {
	m := NewMemory(0)
	sigs := appendN(t, m, 5)

	got, err := m.Read(Range{FromID: sigs[1].ID, ToID: sigs[3].ID})
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Read returned %d entries, want 3", len(got))
	}
	if got[0].ID != sigs[1].ID || got[2].ID != sigs[3].ID {
		t.Errorf("range read returned wrong window: %v..%v", got[0].ID, got[2].ID)
	}

	limited, err := m.Read(Range{Limit: 2})
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited read returned %d entries, want 2", len(limited))
	}
}

func TestMemory_CheckpointPrunes(t *testing.T) {
	m := NewMemory(3)
	sigs := appendN(t, m, 6)

	if err := m.Checkpoint(sigs[3].ID); err != nil {
		t.Fatalf("Checkpoint error: %v", err)
	}
	// Capacity 3: checkpointed entries are pruned until the store fits.
	if m.Len() != 3 {
		t.Errorf("Len = %d after checkpoint prune, want 3", m.Len())
	}

	got, err := m.Read(Range{})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != sigs[3].ID {
		t.Errorf("oldest retained = %q, want %q", got[0].ID, sigs[3].ID)
	}
}

func TestMemory_CheckpointMonotonic(t *testing.T) {
	m := NewMemory(0)
	sigs := appendN(t, m, 2)

	if err := m.Checkpoint(sigs[1].ID); err != nil {
		t.Fatal(err)
	}
	if err := m.Checkpoint(sigs[0].ID); err != nil {
		t.Fatal(err)
	}
	if m.LastCheckpoint() != sigs[1].ID {
		t.Errorf("LastCheckpoint = %q, want %q (older checkpoint must not regress)", m.LastCheckpoint(), sigs[1].ID)
	}
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory(0)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Append([]*signal.Signal{signal.New("a", "t")}); !errors.Is(err, ErrClosed) {
		t.Errorf("Append after Close = %v, want ErrClosed", err)
	}
	if _, err := m.Read(Range{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
	if err := m.Checkpoint("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Checkpoint after Close = %v, want ErrClosed", err)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	sigs := []*signal.Signal{
		signal.New("orders.created", "svc", signal.WithData(map[string]any{"n": 1})),
		signal.New("orders.shipped", "svc"),
	}
	subs := []SubscriptionRecord{
		{ID: "sub-1", Pattern: "orders.#", Adapter: "noop", Priority: 5, Persistent: true, Checkpoint: sigs[0].ID},
	}

	snap, err := NewSnapshot("nightly", sigs, subs, "")
	if err != nil {
		t.Fatalf("NewSnapshot error: %v", err)
	}
	if snap.ID == "" {
		t.Error("snapshot should have an id")
	}
	if snap.Fingerprint == 0 {
		t.Error("snapshot should have a fingerprint")
	}

	data, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot error: %v", err)
	}
	if got.Name != "nightly" {
		t.Errorf("Name = %q, want nightly", got.Name)
	}
	if len(got.Signals) != 2 || got.Signals[0].ID != sigs[0].ID {
		t.Errorf("signals lost in round trip")
	}
	if len(got.Subscriptions) != 1 || got.Subscriptions[0].ID != "sub-1" {
		t.Errorf("subscriptions lost in round trip")
	}
}

func TestSnapshot_DetectsCorruption(t *testing.T) {
	snap, err := NewSnapshot("s", []*signal.Signal{signal.New("a", "t")}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	data, err := snap.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// Flip a byte inside the payload, away from the JSON structure.
	tampered := []byte(string(data))
	for i, b := range tampered {
		if b == 'a' {
			tampered[i] = 'z'
			break
		}
	}
	if _, err := DecodeSnapshot(tampered); !errors.Is(err, ErrSnapshotCorrupt) {
		t.Errorf("DecodeSnapshot of tampered data = %v, want ErrSnapshotCorrupt", err)
	}
}

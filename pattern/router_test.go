package pattern

import (
	"errors"
	"fmt"
	"testing"
)

func ids(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.SubscriptionID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRouter_InsertLookup(t *testing.T) {
	r := NewRouter()

	inserts := []struct {
		pattern  Pattern
		subID    string
		priority int
	}{
		{"orders.created", "sub-exact", 10},
		{"orders.*", "sub-single", 5},
		{"orders.#", "sub-multi", 0},
		{"users.created", "sub-users", 0},
		{"#", "sub-all", -1},
	}
	for _, in := range inserts {
		if err := r.Insert(in.pattern, in.subID, in.priority); err != nil {
			t.Fatalf("Insert(%q, %q) error: %v", in.pattern, in.subID, err)
		}
	}

	tests := []struct {
		sigType string
		want    []string
	}{
		{"orders.created", []string{"sub-exact", "sub-single", "sub-multi", "sub-all"}},
		{"orders.cancelled", []string{"sub-single", "sub-multi", "sub-all"}},
		{"orders", []string{"sub-multi", "sub-all"}},
		{"orders.eu.cancelled", []string{"sub-multi", "sub-all"}},
		{"users.created", []string{"sub-users", "sub-all"}},
		{"billing.invoiced", []string{"sub-all"}},
	}

	for _, tt := range tests {
		t.Run(tt.sigType, func(t *testing.T) {
			got := ids(r.Lookup(tt.sigType))
			if !equalIDs(got, tt.want) {
				t.Errorf("Lookup(%q) = %v, want %v", tt.sigType, got, tt.want)
			}
		})
	}
}

func TestRouter_PriorityOrdering(t *testing.T) {
	// Ties broken by subscription id ascending, regardless of the order
	// patterns were registered.
	r := NewRouter()
	if err := r.Insert("a.b", "zz", 5); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("a.*", "aa", 5); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("a.#", "mm", 9); err != nil {
		t.Fatal(err)
	}

	got := ids(r.Lookup("a.b"))
	want := []string{"mm", "aa", "zz"}
	if !equalIDs(got, want) {
		t.Errorf("Lookup = %v, want %v", got, want)
	}
}

func TestRouter_OrderIndependence(t *testing.T) {
	// The same subscription set must yield the same lookup result no
	// matter what order the subscriptions were inserted in.
	type entry struct {
		pattern  Pattern
		subID    string
		priority int
	}
	entries := []entry{
		{"a.#", "s1", 3},
		{"a.b", "s2", 3},
		{"a.*", "s3", 1},
		{"#", "s4", 7},
	}

	permutations := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}

	var want []string
	for i, perm := range permutations {
		r := NewRouter()
		for _, idx := range perm {
			e := entries[idx]
			if err := r.Insert(e.pattern, e.subID, e.priority); err != nil {
				t.Fatal(err)
			}
		}
		got := ids(r.Lookup("a.b"))
		if i == 0 {
			want = got
			continue
		}
		if !equalIDs(got, want) {
			t.Errorf("permutation %v: Lookup = %v, want %v", perm, got, want)
		}
	}
}

func TestRouter_InsertInvalid(t *testing.T) {
	r := NewRouter()
	if err := r.Insert("a.b", "keep", 0); err != nil {
		t.Fatal(err)
	}

	// A rejected insert must leave the trie exactly as it was.
	err := r.Insert("a.#.b", "bad", 0)
	if err == nil {
		t.Fatal("Insert with misplaced multi-wildcard should fail")
	}
	if !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("error = %v, want ErrInvalidPattern", err)
	}
	if r.Size() != 1 {
		t.Errorf("Size = %d after rejected insert, want 1", r.Size())
	}
	if r.Contains("bad") {
		t.Error("rejected subscription should not be registered")
	}
	got := ids(r.Lookup("a.b"))
	if !equalIDs(got, []string{"keep"}) {
		t.Errorf("Lookup after rejected insert = %v, want [keep]", got)
	}
}

func TestRouter_Remove(t *testing.T) {
	r := NewRouter()
	if err := r.Insert("a.b.c", "s1", 0); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("a.b.*", "s2", 0); err != nil {
		t.Fatal(err)
	}

	r.Remove("s1")
	if r.Contains("s1") {
		t.Error("s1 should be gone after Remove")
	}
	got := ids(r.Lookup("a.b.c"))
	if !equalIDs(got, []string{"s2"}) {
		t.Errorf("Lookup = %v, want [s2]", got)
	}

	// Removing an unknown id is a no-op, not an error.
	r.Remove("s1")
	r.Remove("never-existed")
	if r.Size() != 1 {
		t.Errorf("Size = %d, want 1", r.Size())
	}
}

func TestRouter_RemovePrunes(t *testing.T) {
	r := NewRouter()
	if err := r.Insert("a.b.c.d", "deep", 0); err != nil {
		t.Fatal(err)
	}
	r.Remove("deep")

	if r.root.children != nil && len(r.root.children) != 0 {
		t.Error("empty branches should be pruned after removal")
	}
	if got := r.Lookup("a.b.c.d"); len(got) != 0 {
		t.Errorf("Lookup after removal = %v, want empty", got)
	}
}

func TestRouter_Reinsert(t *testing.T) {
	// Re-registering an existing id moves it to the new pattern with the
	// new priority.
	r := NewRouter()
	if err := r.Insert("orders.*", "sub", 1); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("users.*", "sub", 8); err != nil {
		t.Fatal(err)
	}

	if got := r.Lookup("orders.created"); len(got) != 0 {
		t.Errorf("old pattern still matches: %v", got)
	}
	got := r.Lookup("users.created")
	if len(got) != 1 || got[0].SubscriptionID != "sub" || got[0].Priority != 8 {
		t.Errorf("Lookup = %v, want [{sub 8}]", got)
	}
	if r.Size() != 1 {
		t.Errorf("Size = %d, want 1", r.Size())
	}
}

func TestRouter_EmptyType(t *testing.T) {
	r := NewRouter()
	if err := r.Insert("#", "catch-all", 0); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("a", "literal", 0); err != nil {
		t.Fatal(err)
	}

	got := ids(r.Lookup(""))
	if !equalIDs(got, []string{"catch-all"}) {
		t.Errorf("Lookup(\"\") = %v, want [catch-all]", got)
	}
}

func TestRouter_EmptyTypeSegments(t *testing.T) {
	// "a..b" carries a literal empty middle segment; "a.*.b" matches it.
	r := NewRouter()
	if err := r.Insert("a.*.b", "wild", 0); err != nil {
		t.Fatal(err)
	}
	got := ids(r.Lookup("a..b"))
	if !equalIDs(got, []string{"wild"}) {
		t.Errorf("Lookup(\"a..b\") = %v, want [wild]", got)
	}
}

func TestRouter_Matches(t *testing.T) {
	r := NewRouter()
	if err := r.Insert("orders.#", "sub", 0); err != nil {
		t.Fatal(err)
	}
	if !r.Matches("sub", "orders.created") {
		t.Error("Matches should be true for matching type")
	}
	if r.Matches("sub", "users.created") {
		t.Error("Matches should be false for non-matching type")
	}
	if r.Matches("unknown", "orders.created") {
		t.Error("Matches should be false for unknown subscription")
	}
}

func TestRouter_LookupAgreesWithMatches(t *testing.T) {
	// Lookup must return exactly the subscriptions whose patterns match,
	// for an assortment of types.
	r := NewRouter()
	patterns := []Pattern{
		"a", "a.b", "a.*", "a.#", "*.b", "#", "a.b.c", "a.*.c", "*.*",
	}
	for i, p := range patterns {
		if err := r.Insert(p, fmt.Sprintf("s%02d", i), 0); err != nil {
			t.Fatal(err)
		}
	}

	types := []string{"", "a", "b", "a.b", "a.c", "a.b.c", "a.b.d", "a.b.c.d", "x.b"}
	for _, typ := range types {
		matched := make(map[string]bool)
		for _, m := range r.Lookup(typ) {
			matched[m.SubscriptionID] = true
		}
		for i, p := range patterns {
			id := fmt.Sprintf("s%02d", i)
			want := p.Matches(typ)
			if matched[id] != want {
				t.Errorf("type %q, pattern %q: in Lookup = %v, Matches = %v", typ, p, matched[id], want)
			}
		}
	}
}

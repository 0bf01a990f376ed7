package pattern

import (
	"errors"
	"strings"
	"testing"
)

func TestPattern_Validate(t *testing.T) {
	tests := []struct {
		pattern Pattern
		wantErr bool
	}{
		{"orders.created", false},
		{"orders.*", false},
		{"orders.#", false},
		{"#", false},
		{"*", false},
		{"*.created", false},
		{"orders.*.shipped", false},
		// empty patterns and empty segments
		{"", true},
		{"orders..x", true},
		{".orders", true},
		{"orders.", true},
		// multi-wildcard not in final position
		{"a.#.b", true},
		{"#.a", true},
		{"a.b.#.#", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern.String(), func(t *testing.T) {
			err := tt.pattern.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.pattern, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPattern) {
				t.Errorf("Validate(%q) error should match ErrInvalidPattern", tt.pattern)
			}
		})
	}
}

func TestPattern_Matches(t *testing.T) {
	tests := []struct {
		pattern Pattern
		sigType string
		want    bool
	}{
		{"orders.created", "orders.created", true},
		{"orders.created", "orders.cancelled", false},
		{"orders.created", "orders", false},
		{"orders.created", "orders.created.eu", false},
		{"orders.*", "orders.created", true},
		{"orders.*", "orders", false},
		{"orders.*", "orders.created.eu", false},
		{"*.created", "orders.created", true},
		{"*.created", "users.created", true},
		{"*.created", "created", false},
		{"orders.#", "orders", true},
		{"orders.#", "orders.created", true},
		{"orders.#", "orders.eu.cancelled", true},
		{"orders.#", "users.created", false},
		{"#", "", true},
		{"#", "anything", true},
		{"#", "a.b.c", true},
		// empty pattern matches only an empty type
		{"", "", true},
		{"", "a", false},
		// single wildcard needs exactly one segment
		{"*", "", false},
		{"*", "a", true},
		// empty type segments are literal segments
		{"a.*.b", "a..b", true},
		// invalid patterns never match, not even their own text
		{"a..b", "a..b", false},
		{".orders", ".orders", false},
		{"orders.", "orders.", false},
		{"a.#.b", "a.x.b", false},
		{"#.a", "x.a", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern.String()+"/"+tt.sigType, func(t *testing.T) {
			if got := tt.pattern.Matches(tt.sigType); got != tt.want {
				t.Errorf("Pattern(%q).Matches(%q) = %v, want %v", tt.pattern, tt.sigType, got, tt.want)
			}
		})
	}
}

// naiveMatch is a straightforward segment-by-segment reference matcher
// used to cross-check the production matcher.
func naiveMatch(pat, typ []string) bool {
	if len(pat) == 0 {
		return len(typ) == 0
	}
	head, rest := pat[0], pat[1:]
	if head == WildcardMulti && len(rest) == 0 {
		return true
	}
	if len(typ) == 0 {
		return false
	}
	if head == WildcardSingle || head == typ[0] {
		return naiveMatch(rest, typ[1:])
	}
	return false
}

func TestPattern_Matches_AgainstReference(t *testing.T) {
	segments := []string{"a", "b", "c"}
	patternSegs := []string{"a", "b", "c", WildcardSingle, WildcardMulti}

	// Enumerate every type up to 3 segments and every valid pattern up
	// to 3 segments and check both matchers agree.
	var types []string
	types = append(types, "")
	var buildTypes func(prefix []string, depth int)
	buildTypes = func(prefix []string, depth int) {
		if depth == 0 {
			return
		}
		for _, s := range segments {
			next := append(append([]string{}, prefix...), s)
			types = append(types, strings.Join(next, Separator))
			buildTypes(next, depth-1)
		}
	}
	buildTypes(nil, 3)

	var patterns []Pattern
	var buildPatterns func(prefix []string, depth int)
	buildPatterns = func(prefix []string, depth int) {
		if depth == 0 {
			return
		}
		for _, s := range patternSegs {
			next := append(append([]string{}, prefix...), s)
			p := Join(next...)
			if p.Validate() == nil {
				patterns = append(patterns, p)
			}
			if s != WildcardMulti {
				buildPatterns(next, depth-1)
			}
		}
	}
	buildPatterns(nil, 3)

	for _, p := range patterns {
		for _, typ := range types {
			want := naiveMatch(p.Segments(), split(typ))
			if got := p.Matches(typ); got != want {
				t.Errorf("Matches(%q, %q) = %v, reference says %v", p, typ, got, want)
			}
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("orders", "*", "shipped"); got != "orders.*.shipped" {
		t.Errorf("Join = %q, want %q", got, "orders.*.shipped")
	}
}

package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard constants for pattern matching.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more trailing segments.
	// It may only appear as the final segment of a pattern.
	WildcardMulti = "#"

	// Separator is the character used to separate path segments.
	Separator = "."
)

// ErrInvalidPattern is the sentinel all pattern validation failures match.
var ErrInvalidPattern = errors.New("invalid pattern")

// ValidationError describes why a pattern was rejected.
type ValidationError struct {
	// Pattern is the rejected pattern.
	Pattern string

	// Reason is a human-readable description of the problem.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
}

// Is allows errors.Is to match ValidationError with ErrInvalidPattern.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPattern
}

// Pattern is a dot-separated subscription filter, possibly containing
// wildcards.
type Pattern string

// String returns the pattern as a string.
func (p Pattern) String() string {
	return string(p)
}

// Segments returns the pattern split by the separator.
// An empty pattern has no segments.
func (p Pattern) Segments() []string {
	return split(string(p))
}

// Validate checks that the pattern is well formed: non-empty, no empty
// segments, and the multi-wildcard only in the final position.
func (p Pattern) Validate() error {
	segs := p.Segments()
	if len(segs) == 0 {
		return &ValidationError{Pattern: string(p), Reason: "pattern is empty"}
	}
	for i, seg := range segs {
		if seg == "" {
			return &ValidationError{Pattern: string(p), Reason: "empty segment"}
		}
		if seg == WildcardMulti && i != len(segs)-1 {
			return &ValidationError{Pattern: string(p), Reason: "multi-wildcard only allowed as final segment"}
		}
	}
	return nil
}

// Matches reports whether the given concrete type matches this pattern.
//
// Note that types, unlike patterns, may legitimately contain empty
// segments: "a..b" is three segments, the middle one the empty string.
// Empty segments in a type are matched literally, never collapsed.
// An empty pattern matches only an empty type.
func (p Pattern) Matches(sigType string) bool {
	return matchSegments(split(sigType), p.Segments())
}

// Matches reports whether sigType matches pat. Invalid patterns
// never match.
func Matches(pat Pattern, sigType string) bool {
	return pat.Matches(sigType)
}

// matchSegments walks the type and pattern segment lists in lockstep.
// Invalid pattern segments, an empty segment or a multi-wildcard
// before the final position, never match anything.
func matchSegments(typ, pat []string) bool {
	ti := 0
	for pi := 0; pi < len(pat); pi++ {
		switch seg := pat[pi]; {
		case seg == WildcardMulti:
			// Zero or more remaining segments, final position only.
			return pi == len(pat)-1
		case seg == "":
			return false
		case ti >= len(typ):
			return false
		case seg != WildcardSingle && seg != typ[ti]:
			return false
		}
		ti++
	}
	return ti == len(typ)
}

// split splits a dot path into segments, preserving empty segments.
// The empty string has zero segments.
func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, Separator)
}

// Join joins segments into a pattern.
func Join(segments ...string) Pattern {
	return Pattern(strings.Join(segments, Separator))
}

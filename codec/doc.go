// Package codec provides pluggable signal serialization for adapters
// that cross a process or network boundary.
//
// The in-process direct adapter never serializes; the webhook adapter
// (and any custom transport) picks a Codec at construction time. Two
// implementations ship with the bus: JSON for human-readable wire
// payloads and msgpack for compact binary ones.
package codec

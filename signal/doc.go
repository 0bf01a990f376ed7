// Package signal defines the event envelope that flows through the bus.
//
// A Signal is an immutable record of something that happened: a
// dot-segmented type, a source, an optional subject, a timestamp, and an
// opaque payload. The bus never interprets the payload; it only routes
// envelopes by type and moves them through delivery adapters.
//
// Signal ids are UUIDv7 values. They are assigned exactly once at
// creation and are lexicographically ordered by creation time within a
// single process, which makes the id usable as the bus log's sequence
// key without a separate counter.
package signal

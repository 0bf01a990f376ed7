// Package journal defines the pluggable persistence backend behind the
// bus log, plus the snapshot format used for recovery.
//
// The bus keeps its bounded log window in memory and writes every
// appended signal through a Store. The in-memory Store shipped here is
// the default and is sufficient for single-process use; hosts that
// need durability implement Store against their own storage and hand
// it to the bus.
//
// Snapshots capture a log window and the subscription table at a point
// in time. Each snapshot carries an xxhash fingerprint over its encoded
// content so a restore can reject corrupt or truncated data.
package journal

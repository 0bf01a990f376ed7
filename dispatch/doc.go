// Package dispatch delivers signals through pluggable transport adapters.
//
// An Adapter is a delivery strategy: hand the signal to an in-process
// receiver, fan it out to a broadcast group, POST it to a webhook, write
// it to a log, or discard it. Adapters validate their own options before
// first use and either deliver or return an error - they never silently
// drop a signal.
//
// The Registry resolves adapter names to implementations once at
// registration time. Hosts can plug in additional transports by
// implementing Adapter and calling Register; the bus core never needs
// to change.
//
// Delivery is synchronous by default. DeliverAsync returns a Future for
// callers that want to overlap deliveries, and DeliverBatch uses an
// adapter's batch fast path when it implements BatchAdapter.
package dispatch

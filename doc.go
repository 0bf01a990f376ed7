// Package sigbus is a concurrent publish/subscribe signal bus with
// wildcard routing, pluggable delivery adapters and a bounded
// append-only signal log.
//
// Signals are typed envelopes addressed by dot-separated type paths
// such as "user.created" or "order.payment.failed". Subscriptions
// match types with patterns that may use "*" for exactly one segment
// and a trailing "#" for the rest of the path:
//
//	bus := sigbus.New()
//	_ = bus.Start()
//	defer bus.Stop(context.Background())
//
//	subID, _ := bus.Subscribe("order.#", dispatch.Config{
//		Adapter: dispatch.AdapterDirect,
//		Options: dispatch.Options{"receiver": rcv},
//	})
//
//	_ = bus.Publish(signal.New("order.created", "checkout",
//		signal.WithData(map[string]any{"order_id": 42})))
//
// Matching subscriptions receive signals in priority order, highest
// first, through per-subscription delivery workers, so one slow
// consumer never stalls the rest. Delivery failures are observed on
// the Errors channel rather than surfacing through Publish.
//
// Persistent subscriptions acknowledge processed signals with Ack and
// can Replay unprocessed ranges from the retained log. The log window
// is bounded; when eviction overtakes a checkpoint the affected
// subscription gets a ReplayGapError instead of a silently shortened
// replay.
//
// Subpackages: signal defines the envelope, pattern the wildcard
// router, dispatch the adapter layer, codec the wire encodings and
// journal the durable store and snapshots.
package sigbus

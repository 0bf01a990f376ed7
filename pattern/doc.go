// Package pattern implements subscription pattern matching for the bus.
//
// Signal types are hierarchical, dot-separated paths:
//
//	orders.created
//	orders.eu.cancelled
//
// Subscription patterns filter types with two wildcards:
//
//	orders.*     matches orders.created, orders.updated (exactly one segment)
//	orders.#     matches orders, orders.created, orders.eu.cancelled
//	             (zero or more trailing segments; only valid at the end)
//
// The Router stores patterns in a trie keyed by path segment, with
// reserved children for each wildcard, so a lookup walks at most one
// node per type segment plus the wildcard branches. Router is not
// safe for concurrent use: the bus serializes all router access
// through its control loop, which is the only owner.
package pattern

package pattern

import "sort"

// Match is one routing result: a subscription and its delivery priority.
type Match struct {
	// SubscriptionID identifies the matched subscription.
	SubscriptionID string

	// Priority orders deliveries among simultaneous matches.
	// Higher values deliver first.
	Priority int
}

// Router maps subscription patterns to subscription ids using a trie
// over path segments.
//
// Router is deliberately unsynchronized. The bus control loop is its
// single owner; all inserts, removals and lookups happen on that loop,
// so no lock is needed. The routing tables are a pure function of the
// current subscription set: lookup results depend only on which
// subscriptions are registered, never on registration order.
type Router struct {
	root     *node
	patterns map[string]Pattern // subscription id -> pattern, for removal
}

// node is one trie level. Literal segments live in children; the two
// wildcards get reserved slots so a lookup can try all three branches.
type node struct {
	children map[string]*node
	single   *node // "*" child
	multi    *node // "#" child
	handlers []Match
}

func newNode() *node {
	return &node{}
}

func (n *node) isEmpty() bool {
	return len(n.children) == 0 && n.single == nil && n.multi == nil && len(n.handlers) == 0
}

// child returns the child for a pattern segment, creating it if asked.
func (n *node) child(seg string, create bool) *node {
	switch seg {
	case WildcardSingle:
		if n.single == nil && create {
			n.single = newNode()
		}
		return n.single
	case WildcardMulti:
		if n.multi == nil && create {
			n.multi = newNode()
		}
		return n.multi
	default:
		c := n.children[seg]
		if c == nil && create {
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			c = newNode()
			n.children[seg] = c
		}
		return c
	}
}

// dropChild removes the child reached by seg.
func (n *node) dropChild(seg string) {
	switch seg {
	case WildcardSingle:
		n.single = nil
	case WildcardMulti:
		n.multi = nil
	default:
		delete(n.children, seg)
	}
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		root:     newNode(),
		patterns: make(map[string]Pattern),
	}
}

// Insert registers a subscription under the given pattern.
//
// The pattern is validated first; a rejected insert leaves the trie
// untouched. If the subscription id is already registered, its old
// pattern is removed and replaced atomically from the caller's point
// of view.
func (r *Router) Insert(pat Pattern, subID string, priority int) error {
	if err := pat.Validate(); err != nil {
		return err
	}

	// Re-registering an id moves it to the new pattern.
	r.Remove(subID)

	n := r.root
	for _, seg := range pat.Segments() {
		n = n.child(seg, true)
	}
	n.handlers = append(n.handlers, Match{SubscriptionID: subID, Priority: priority})
	r.patterns[subID] = pat
	return nil
}

// Remove deletes a subscription from the trie and prunes any nodes left
// empty. Removing an unknown id is a no-op.
func (r *Router) Remove(subID string) {
	pat, ok := r.patterns[subID]
	if !ok {
		return
	}
	delete(r.patterns, subID)

	segs := pat.Segments()

	// Walk down recording the path so empty nodes can be pruned on the
	// way back up.
	path := make([]*node, 0, len(segs)+1)
	path = append(path, r.root)
	n := r.root
	for _, seg := range segs {
		n = n.child(seg, false)
		if n == nil {
			return
		}
		path = append(path, n)
	}

	for i, h := range n.handlers {
		if h.SubscriptionID == subID {
			n.handlers = append(n.handlers[:i], n.handlers[i+1:]...)
			break
		}
	}

	for i := len(path) - 1; i > 0; i-- {
		if !path[i].isEmpty() {
			break
		}
		path[i-1].dropChild(segs[i-1])
	}
}

// Contains reports whether the subscription id is registered.
func (r *Router) Contains(subID string) bool {
	_, ok := r.patterns[subID]
	return ok
}

// PatternOf returns the pattern registered for a subscription id.
func (r *Router) PatternOf(subID string) (Pattern, bool) {
	p, ok := r.patterns[subID]
	return p, ok
}

// Size returns the number of registered subscriptions.
func (r *Router) Size() int {
	return len(r.patterns)
}

// Lookup returns every subscription whose pattern matches the given
// type, sorted by priority descending with ties broken by subscription
// id ascending. The ordering is deterministic regardless of
// registration order.
func (r *Router) Lookup(sigType string) []Match {
	segs := split(sigType)

	var (
		matches []Match
		seen    map[string]struct{}
	)
	collect := func(hs []Match) {
		for _, h := range hs {
			if seen == nil {
				seen = make(map[string]struct{})
			}
			if _, dup := seen[h.SubscriptionID]; dup {
				continue
			}
			seen[h.SubscriptionID] = struct{}{}
			matches = append(matches, h)
		}
	}

	r.walk(r.root, segs, 0, collect)

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority > matches[j].Priority
		}
		return matches[i].SubscriptionID < matches[j].SubscriptionID
	})
	return matches
}

// walk explores literal, single-wildcard and multi-wildcard branches at
// each node. A multi-wildcard child terminates immediately, collecting
// its handlers no matter how many type segments remain.
func (r *Router) walk(n *node, segs []string, depth int, collect func([]Match)) {
	if n == nil {
		return
	}

	// "#" matches the zero-or-more remainder from here on.
	if n.multi != nil {
		collect(n.multi.handlers)
	}

	if depth == len(segs) {
		collect(n.handlers)
		return
	}

	seg := segs[depth]
	if c := n.children[seg]; c != nil {
		r.walk(c, segs, depth+1, collect)
	}
	if n.single != nil {
		r.walk(n.single, segs, depth+1, collect)
	}
}

// Matches reports whether the registered pattern of subID matches the
// given type. Unknown ids never match.
func (r *Router) Matches(subID, sigType string) bool {
	pat, ok := r.patterns[subID]
	if !ok {
		return false
	}
	return pat.Matches(sigType)
}

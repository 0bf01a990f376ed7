package sigbus

import "github.com/dshills/sigbus/signal"

// signalLog is the bounded, append-only window of published signals.
// It is owned by the bus control loop and is not safe for concurrent
// use on its own.
type signalLog struct {
	max            int
	entries        []*signal.Signal
	evictedThrough string // newest id ever evicted, "" if none
}

func newSignalLog(max int) *signalLog {
	return &signalLog{max: max}
}

// append adds a signal, evicting the oldest entries if the window is
// over capacity. It returns the evicted entries, oldest first.
func (l *signalLog) append(sig *signal.Signal) []*signal.Signal {
	l.entries = append(l.entries, sig)
	if l.max <= 0 || len(l.entries) <= l.max {
		return nil
	}

	n := len(l.entries) - l.max
	evicted := make([]*signal.Signal, n)
	copy(evicted, l.entries[:n])
	l.entries = append(l.entries[:0], l.entries[n:]...)
	l.evictedThrough = evicted[n-1].ID
	return evicted
}

// contains reports whether an id is in the retained window.
func (l *signalLog) contains(id string) bool {
	for _, e := range l.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// oldest returns the oldest retained id, or "" when empty.
func (l *signalLog) oldest() string {
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[0].ID
}

// newest returns the newest retained id, or "" when empty.
func (l *signalLog) newest() string {
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].ID
}

// slice copies the retained entries with ids in [from, to], oldest
// first. An empty from starts at the oldest entry; an empty to runs to
// the newest.
func (l *signalLog) slice(from, to string) []*signal.Signal {
	var out []*signal.Signal
	for _, e := range l.entries {
		if from != "" && e.ID < from {
			continue
		}
		if to != "" && e.ID > to {
			continue
		}
		out = append(out, e)
	}
	return out
}

// window copies the whole retained window, oldest first.
func (l *signalLog) window() []*signal.Signal {
	out := make([]*signal.Signal, len(l.entries))
	copy(out, l.entries)
	return out
}

// replace swaps in a new window, as done by snapshot restore.
func (l *signalLog) replace(entries []*signal.Signal, evictedThrough string) {
	l.entries = append(l.entries[:0:0], entries...)
	l.evictedThrough = evictedThrough
}

func (l *signalLog) len() int {
	return len(l.entries)
}

package ircd

import "github.com/relaycore/ircd/internal/casefold"

// historyCapacity bounds the WHOWAS ring, the same way the reference
// server keeps a fixed-size history list rather than unbounded log.
const historyCapacity = 512

// History is a LIFO ring of client snapshots, most recent first.
type History struct {
	entries []HistoryEntry
}

// NewHistory creates an empty history ring.
func NewHistory() *History { return &History{} }

// Add inserts a snapshot at the front, evicting the oldest entry once
// the ring is full.
func (h *History) Add(e HistoryEntry) {
	h.entries = append([]HistoryEntry{e}, h.entries...)
	if len(h.entries) > historyCapacity {
		h.entries = h.entries[:historyCapacity]
	}
}

// Lookup returns up to count matches for nick (case-folded), most
// recent first. count <= 0 means unlimited.
func (h *History) Lookup(nick string, count int) []HistoryEntry {
	folded := casefold.Fold(nick)
	var out []HistoryEntry
	for _, e := range h.entries {
		if casefold.Fold(e.Nick) != folded {
			continue
		}
		out = append(out, e)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}

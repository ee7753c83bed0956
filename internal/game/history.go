package game

import (
	"encoding/json"
	"time"
)

// HistoryEntry summarises one settled round.
type HistoryEntry struct {
	Game       GameType  `json:"game"`
	RoundID    string    `json:"round_id,omitempty"`
	Multiplier uint64    `json:"multiplier"`
	BetAmount  uint64    `json:"bet_amount,omitempty"`
	Payout     uint64    `json:"payout"`
	Won        bool      `json:"won"`
	HandRank   HandRank  `json:"hand_rank,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// History is a bounded newest-first list. It is owned by one controller
// loop and is not safe for concurrent use.
type History struct {
	limit   int
	entries []HistoryEntry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 10
	}
	return &History{limit: limit}
}

func (h *History) Add(e HistoryEntry) {
	h.entries = append([]HistoryEntry{e}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

// Entries returns a copy, newest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}

// Restore replaces the list with persisted entries given newest first.
// Entries that fail to decode are skipped.
func (h *History) Restore(raw []json.RawMessage) {
	h.entries = h.entries[:0]
	for _, r := range raw {
		var e HistoryEntry
		if err := json.Unmarshal(r, &e); err != nil {
			continue
		}
		h.entries = append(h.entries, e)
		if len(h.entries) == h.limit {
			break
		}
	}
}

package scan

import (
	"strconv"
	"time"
)

// HistoryLimit caps how many past scan outcomes a session remembers.
const HistoryLimit = 10

// HistoryEntry is a snapshot of a completed scan's top detection. Confidence
// is kept as display text so the no-detection sentinel can render as "-".
type HistoryEntry struct {
	At         time.Time
	Label      string
	Confidence string
	Status     string
}

// History is a bounded, newest-first record of scan outcomes. It is session
// scoped and never persisted.
type History struct {
	entries []HistoryEntry
}

// Append inserts at the front, evicting the oldest entry past the limit.
func (h *History) Append(e HistoryEntry) {
	h.entries = append([]HistoryEntry{e}, h.entries...)
	if len(h.entries) > HistoryLimit {
		h.entries = h.entries[:HistoryLimit]
	}
}

// Entries returns the log newest-first. The returned slice is a copy.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// EntryForResult derives the history snapshot for a completed scan: the top
// detection, or the no-detection sentinel when the scan found nothing.
func EntryForResult(at time.Time, r Result) HistoryEntry {
	top, ok := r.Top()
	if !ok {
		return HistoryEntry{At: at, Label: "No detection", Confidence: "-", Status: "N/A"}
	}

	status := "N/A"
	if top.Details != nil && top.Details.Status != "" {
		status = top.Details.Status
	}
	return HistoryEntry{
		At:         at,
		Label:      top.Label,
		Confidence: strconv.FormatFloat(top.Confidence, 'f', 2, 64),
		Status:     status,
	}
}

package prdgen

import (
	"sync"
	"time"
)

// HistoryEntry is one recorded document. The Document is a deep copy frozen
// at recording time.
type HistoryEntry struct {
	SessionID   string
	Document    Document
	CompletedAt time.Time
}

// History is an append-only in-memory store of completed documents. No
// removal, no mutation, no deduplication. Reads may race the final append
// of a finishing session, so access is mutex-guarded.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

// NewHistory returns an empty store.
func NewHistory() *History {
	return &History{}
}

// Record appends an entry. The entry's Document is cloned so the caller's
// copy stays independent.
func (h *History) Record(e HistoryEntry) {
	e.Document = e.Document.Clone()
	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()
}

// List returns the recorded entries in recording order. The returned slice
// is a copy.
func (h *History) List() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

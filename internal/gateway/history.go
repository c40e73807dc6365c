// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"sync"
	"time"

	apperrors "hextract/cli/internal/errors"
)

// DefaultHistorySize bounds the diagnostic history.
const DefaultHistorySize = 1000

// HistoryEntry records one SendCommand call. Entries are never modified.
type HistoryEntry struct {
	Command   string         `json:"command"`
	Success   bool           `json:"success"`
	ErrorKind apperrors.Kind `json:"errorKind,omitempty"`
	Attempts  int            `json:"attempts"`
	Duration  time.Duration  `json:"duration"`
	Timestamp time.Time      `json:"timestamp"`
}

// History is a fixed-size ring buffer; the oldest entry is evicted first.
type History struct {
	mu   sync.Mutex
	buf  []HistoryEntry
	next int
	full bool
}

// NewHistory creates a ring holding at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]HistoryEntry, size)}
}

// Add appends e, evicting the oldest entry when full.
func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = e
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Entries returns a copy, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full {
		return append([]HistoryEntry(nil), h.buf[:h.next]...)
	}
	out := make([]HistoryEntry, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}

// Stats summarises the entries currently held.
type Stats struct {
	Total           int            `json:"total"`
	Successful      int            `json:"successful"`
	Failed          int            `json:"failed"`
	SuccessRate     float64        `json:"successRate"`
	AverageDuration time.Duration  `json:"averageDuration"`
	Recent          []HistoryEntry `json:"recent"`
}

const recentEntries = 10

func statsOf(entries []HistoryEntry) Stats {
	s := Stats{Total: len(entries)}
	var total time.Duration
	for _, e := range entries {
		if e.Success {
			s.Successful++
		}
		total += e.Duration
	}
	s.Failed = s.Total - s.Successful
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total) * 100
		s.AverageDuration = total / time.Duration(s.Total)
	}
	from := max(0, len(entries)-recentEntries)
	s.Recent = append([]HistoryEntry(nil), entries[from:]...)
	return s
}

// Package observability provides anonymization outcome tracking for run summaries.
package observability

import (
	"sort"
	"sync"
	"time"
)

// RunStats tracks per-field fallback frequency and record counts across a
// pipeline run. All methods are O(1) and thread-safe.
type RunStats struct {
	mu        sync.RWMutex
	fallbacks map[string]*FieldStats
	processed int64
	skipped   int64
}

// FieldStats holds fallback statistics for a single field.
type FieldStats struct {
	Field     string
	Fallbacks int64
	LastSeen  time.Time
}

// NewRunStats creates a new run statistics tracker.
func NewRunStats() *RunStats {
	return &RunStats{
		fallbacks: make(map[string]*FieldStats),
	}
}

// RecordFallback records that a field's transform fell back to a sentinel.
func (r *RunStats) RecordFallback(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, exists := r.fallbacks[field]
	if !exists {
		stats = &FieldStats{Field: field}
		r.fallbacks[field] = stats
	}

	stats.Fallbacks++
	stats.LastSeen = time.Now()
}

// RecordProcessed records a successfully anonymized record.
func (r *RunStats) RecordProcessed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
}

// RecordSkipped records a record dropped because its transform failed.
func (r *RunStats) RecordSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

// Counts returns the processed and skipped record totals.
func (r *RunStats) Counts() (processed, skipped int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.processed, r.skipped
}

// TopFallbackFields returns the top N fields by fallback frequency.
// Returns a copy of the stats sorted by frequency (descending).
func (r *RunStats) TopFallbackFields(n int) []FieldStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || len(r.fallbacks) == 0 {
		return []FieldStats{}
	}

	stats := make([]FieldStats, 0, len(r.fallbacks))
	for _, s := range r.fallbacks {
		stats = append(stats, *s)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Fallbacks > stats[j].Fallbacks
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

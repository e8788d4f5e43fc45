// Package barstore holds the ordered daily-bar history for one instrument.
// The store is the sole source of truth for how much history exists; it is
// owned by a single ingestion run and never mutated concurrently.
package barstore

import (
	"sort"

	"commodity-systemv1/internal/model"
)

// Store is an append-only sequence of daily bars, ascending by date, with
// at most one bar per calendar date.
type Store struct {
	bars  []model.Bar
	dates map[string]bool
}

// New creates an empty store.
func New() *Store {
	return &Store{dates: make(map[string]bool, 256)}
}

// FromRecords rebuilds a store from persisted history records. Records
// with unparseable dates and duplicate dates are skipped; the skip count
// is returned so the caller can log it.
func FromRecords(records []model.HistoryRecord) (*Store, int) {
	s := New()
	skipped := 0
	for _, r := range records {
		b, ok := r.Bar()
		if !ok || !s.Add(b) {
			skipped++
		}
	}
	return s, skipped
}

// Add appends a bar if no bar for its date exists yet. Returns false for a
// duplicate date (the store is unchanged; appends are idempotent per date;
// overwrite/correction of a recorded day is not supported).
func (s *Store) Add(b model.Bar) bool {
	key := b.DateKey()
	if s.dates[key] {
		return false
	}
	s.dates[key] = true
	s.bars = append(s.bars, b)
	return true
}

// Has reports whether a bar for the given date is already stored.
func (s *Store) Has(b model.Bar) bool {
	return s.dates[b.DateKey()]
}

// Len returns the number of stored bars.
func (s *Store) Len() int {
	return len(s.bars)
}

// Sorted returns the full history in ascending date order. The re-sort
// runs on every call: it tolerates out-of-order appends by the caller,
// though duplicate dates are already impossible. The returned slice is a
// copy; callers may not mutate store state through it.
func (s *Store) Sorted() []model.Bar {
	out := make([]model.Bar, len(s.bars))
	copy(out, s.bars)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

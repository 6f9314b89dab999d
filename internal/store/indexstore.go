package store

import (
	"sort"
	"sync"
	"time"

	"feedenginev1/internal/model"
)

// IndexUpdate carries one index broadcast record. Change and percent
// change are derived from the previous close when the feed does not
// carry them.
type IndexUpdate struct {
	Value      float64
	High       float64
	Low        float64
	Open       float64
	Close      float64
	PctChange  float64
	YearlyHigh float64
	YearlyLow  float64
}

// IndexStore is the sparse companion of PriceStore: the set of index
// identifiers is open-ended, so entries are created on first sight and
// kept for the process lifetime.
type IndexStore struct {
	mu      sync.RWMutex
	segment model.Segment
	rows    map[string]model.IndexRow
}

func NewIndexStore(segment model.Segment) *IndexStore {
	return &IndexStore{
		segment: segment,
		rows:    make(map[string]model.IndexRow),
	}
}

// Update applies an index record, inserting the row on first sight.
func (s *IndexStore) Update(name string, u IndexUpdate) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[name]
	row.Name = name
	row.Segment = s.segment
	row.Value = u.Value
	row.High = u.High
	row.Low = u.Low
	row.Open = u.Open
	row.Close = u.Close
	row.Change = u.Value - u.Close
	if u.PctChange != 0 {
		row.PercentChange = u.PctChange
	} else if u.Close > 0 {
		row.PercentChange = (u.Value - u.Close) / u.Close * 100
	}
	if u.YearlyHigh != 0 {
		row.YearlyHigh = u.YearlyHigh
	}
	if u.YearlyLow != 0 {
		row.YearlyLow = u.YearlyLow
	}
	row.UpdatedAt = time.Now().UnixMicro()
	s.rows[name] = row
}

// Snapshot returns a copy of the named index row.
func (s *IndexStore) Snapshot(name string) (model.IndexRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[name]
	return row, ok
}

// Names returns the known index identifiers, sorted.
func (s *IndexStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rows))
	for name := range s.rows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns a copy of every index row, ordered by name.
func (s *IndexStore) All() []model.IndexRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.rows))
	for name := range s.rows {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]model.IndexRow, 0, len(names))
	for _, name := range names {
		out = append(out, s.rows[name])
	}
	return out
}

// Len returns the number of known indices.
func (s *IndexStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

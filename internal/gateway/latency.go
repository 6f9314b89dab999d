package gateway

import (
	"sort"
	"sync"
)

// LatencySampler keeps the most recent feed-to-client delivery lags, in
// milliseconds, in a fixed ring. A lag is the wall-clock span from UDP
// receive (the update's recv_ts) to envelope broadcast. Old samples age
// out as new ticks are delivered.
type LatencySampler struct {
	mu   sync.Mutex
	ring []float64
	next int
	n    int
}

// NewLatencySampler returns a sampler holding the last capacity lags.
func NewLatencySampler(capacity int) *LatencySampler {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LatencySampler{ring: make([]float64, capacity)}
}

// Observe records one delivery lag in milliseconds.
func (s *LatencySampler) Observe(ms float64) {
	s.mu.Lock()
	s.ring[s.next] = ms
	s.next = (s.next + 1) % len(s.ring)
	if s.n < len(s.ring) {
		s.n++
	}
	s.mu.Unlock()
}

// Percentiles summarises the retained lags as p50, p95 and p99
// milliseconds, zeros when nothing has been observed yet.
func (s *LatencySampler) Percentiles() (p50, p95, p99 float64) {
	s.mu.Lock()
	if s.n == 0 {
		s.mu.Unlock()
		return 0, 0, 0
	}
	// Arrival order is irrelevant once sorted, so the ring is copied
	// as-is without rotating oldest-first.
	sorted := make([]float64, s.n)
	copy(sorted, s.ring[:s.n])
	s.mu.Unlock()

	sort.Float64s(sorted)
	return rank(sorted, 0.50), rank(sorted, 0.95), rank(sorted, 0.99)
}

// Count reports how many lags the ring currently holds.
func (s *LatencySampler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// rank picks the nearest-rank percentile from an ascending slice.
func rank(sorted []float64, p float64) float64 {
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

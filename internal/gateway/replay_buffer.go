package gateway

import "sync"

// storedEnvelope pairs a per-channel sequence number with the marshalled
// envelope that was broadcast under it.
type storedEnvelope struct {
	seq     int64
	payload []byte
}

// ReplayBuffer retains the last N envelopes broadcast on one channel so a
// reconnecting client can backfill a sequence gap instead of taking a
// fresh snapshot. Safe for concurrent use.
type ReplayBuffer struct {
	mu    sync.RWMutex
	ring  []storedEnvelope
	head  int // oldest entry
	count int
}

// NewReplayBuffer returns a buffer retaining the last capacity envelopes.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &ReplayBuffer{ring: make([]storedEnvelope, capacity)}
}

// Store records one broadcast envelope, evicting the oldest when full.
// The payload is copied; callers may reuse their slice.
func (rb *ReplayBuffer) Store(seq int64, payload []byte) {
	cp := append([]byte(nil), payload...)
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.count < len(rb.ring) {
		rb.ring[(rb.head+rb.count)%len(rb.ring)] = storedEnvelope{seq: seq, payload: cp}
		rb.count++
		return
	}
	rb.ring[rb.head] = storedEnvelope{seq: seq, payload: cp}
	rb.head = (rb.head + 1) % len(rb.ring)
}

// Between returns the payloads whose sequence falls in [from, to],
// oldest first.
func (rb *ReplayBuffer) Between(from, to int64) [][]byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	var out [][]byte
	for i := 0; i < rb.count; i++ {
		e := rb.ring[(rb.head+i)%len(rb.ring)]
		if e.seq >= from && e.seq <= to {
			out = append(out, e.payload)
		}
	}
	return out
}

// Len reports how many envelopes the buffer currently retains.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

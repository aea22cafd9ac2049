package audit

import (
	"context"
	"sync"
)

// MemorySink keeps the most recent chain outcomes in a bounded ring.
// Suitable for development and lightweight deployments; records are lost
// on restart.
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
	next    int
	full    bool
}

// Ensure MemorySink implements Sink at compile time.
var _ Sink = (*MemorySink)(nil)

// NewMemorySink creates a sink retaining up to maxRecords outcomes. A
// non-positive maxRecords defaults to 1024.
func NewMemorySink(maxRecords int) *MemorySink {
	if maxRecords <= 0 {
		maxRecords = 1024
	}
	return &MemorySink{records: make([]Record, maxRecords)}
}

// Record appends an outcome, overwriting the oldest once the ring is full.
func (s *MemorySink) Record(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[s.next] = rec
	s.next++
	if s.next == len(s.records) {
		s.next = 0
		s.full = true
	}
	return nil
}

// Recent returns up to n outcomes, newest first.
func (s *MemorySink) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.full {
		size = len(s.records)
	}
	if n > size {
		n = size
	}

	out := make([]Record, 0, n)
	idx := s.next
	for len(out) < n {
		idx--
		if idx < 0 {
			idx = len(s.records) - 1
		}
		out = append(out, s.records[idx])
	}
	return out
}

// Close releases nothing; it exists to satisfy Sink.
func (s *MemorySink) Close() {}

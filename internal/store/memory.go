package store

import (
	"context"
	"sync"
	"time"
)

// MemoryUpdateStore is an in-process UpdateStore. Entries are lost on
// restart, which only matters for redeliveries that straddle one.
type MemoryUpdateStore struct {
	mu   sync.Mutex
	seen map[int64]time.Time
	now  func() time.Time
}

func NewMemoryUpdateStore() *MemoryUpdateStore {
	return &MemoryUpdateStore{
		seen: make(map[int64]time.Time),
		now:  time.Now,
	}
}

func (s *MemoryUpdateStore) MarkProcessed(_ context.Context, updateID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[updateID]; exists {
		return false, nil
	}
	s.seen[updateID] = s.now()
	return true, nil
}

func (s *MemoryUpdateStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryUpdateStore) Close() error { return nil }

// Len returns the number of tracked update ids.
func (s *MemoryUpdateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

package webhook

import (
	"context"
	"sync"
)

// SeenStore tracks transaction hashes that have already been processed,
// enforcing webhook idempotency.
type SeenStore interface {
	Seen(ctx context.Context, txHash string) (bool, error)
	Add(ctx context.Context, txHash string) error
}

// MemorySeenStore is the default process-local store, bounded to a maximum
// size: when full, the oldest half of the entries is evicted.
type MemorySeenStore struct {
	mu    sync.Mutex
	max   int
	order []string
	set   map[string]struct{}
}

func NewMemorySeenStore(max int) *MemorySeenStore {
	if max < 2 {
		max = 2
	}
	return &MemorySeenStore{
		max: max,
		set: make(map[string]struct{}, max),
	}
}

func (s *MemorySeenStore) Seen(_ context.Context, txHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[txHash]
	return ok, nil
}

func (s *MemorySeenStore) Add(_ context.Context, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[txHash]; ok {
		return nil
	}
	if len(s.order) >= s.max {
		half := len(s.order) / 2
		for _, old := range s.order[:half] {
			delete(s.set, old)
		}
		s.order = append(s.order[:0], s.order[half:]...)
	}
	s.set[txHash] = struct{}{}
	s.order = append(s.order, txHash)
	return nil
}

// Len reports the number of tracked hashes; tests only.
func (s *MemorySeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set)
}

package history

import (
	"context"
	"sync"
	"time"
)

// MemStore keeps the ledger in process memory; wiped on restart. Used for
// ephemeral deployments and tests.
type MemStore struct {
	mu      sync.Mutex
	entries map[memKey]time.Time
}

type memKey struct {
	url    string
	action string
}

func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[memKey]time.Time),
	}
}

func (s *MemStore) Count(ctx context.Context, url, action string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[memKey{url, action}]; ok {
		return 1, nil
	}
	return 0, nil
}

func (s *MemStore) Record(ctx context.Context, url, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey{url, action}
	if _, ok := s.entries[k]; ok {
		return nil
	}
	s.entries[k] = time.Now()
	return nil
}

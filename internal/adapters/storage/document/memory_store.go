package document

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in process memory. Used for tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// Get returns a copy of the stored document.
// PRE: key is valid
// POST: Returns ErrNotFound for unknown keys
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

// Put stores a copy of body under key.
// PRE: key is valid
// POST: Subsequent Get returns body
func (s *MemoryStore) Put(_ context.Context, key string, body []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[key] = append([]byte(nil), body...)
	s.mu.Unlock()
	return nil
}

// Keys lists stored keys; handy in tests.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		keys = append(keys, k)
	}
	return keys
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

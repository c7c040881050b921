package memory

import (
	"context"
	"sync"

	"github.com/iudanet/quotakeeper/internal/storage"
)

// Storage is an in-process key/value store scoped to the lifetime of the
// application, the analogue of sessionStorage in the browser deployment.
// Session envelopes and obfuscated tokens live here and vanish on exit.
type Storage struct {
	values map[string][]byte
	mu     sync.RWMutex
}

// Compile-time check that Storage implements storage.Store
var _ storage.Store = (*Storage)(nil)

// New creates an empty session-scoped store.
func New() *Storage {
	return &Storage{
		values: make(map[string][]byte),
	}
}

// Get returns the value stored under key, or storage.ErrNotFound.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}

	// Возвращаем копию
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores value under key.
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return nil
}

// Delete removes the value under key. Deleting an absent key is a no-op.
func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

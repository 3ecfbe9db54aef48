package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/soarbridge/internal/domain/model"
)

// MemoryStore keeps checkpoints for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.Checkpoint
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.Checkpoint{}}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key string) (cp model.Checkpoint, err error) {
	defer func(start time.Time) { observe("memory", "load", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.data[key]
	if !ok {
		return model.Checkpoint{}, ErrNotFound
	}
	cp.SeenIDs = slices.Clone(cp.SeenIDs)
	return cp, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, key string, cp model.Checkpoint) error {
	defer observe("memory", "save", time.Now(), nil)

	cp.SeenIDs = slices.Clone(cp.SeenIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cp
	return nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
)

type IdentityStore struct {
	mu   sync.RWMutex
	data map[string]store.IdentityRecord
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{data: make(map[string]store.IdentityRecord)}
}

func (s *IdentityStore) Get(_ context.Context, identityID string) (store.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[identityID]
	if !ok {
		return store.IdentityRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *IdentityStore) Put(_ context.Context, rec store.IdentityRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.data[rec.IdentityID]; ok {
		rec.CreatedAt = prev.CreatedAt
	}
	s.data[rec.IdentityID] = rec
	return nil
}

func (s *IdentityStore) Delete(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, identityID)
	return nil
}

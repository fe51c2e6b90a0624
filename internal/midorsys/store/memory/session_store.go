package memory

import (
	"context"
	"sync"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
)

type SessionStore struct {
	mu   sync.RWMutex
	data map[string]store.SessionRecord
}

func NewSessionStore() *SessionStore {
	return &SessionStore{data: make(map[string]store.SessionRecord)}
}

func (s *SessionStore) Get(_ context.Context, identityID string) (store.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[identityID]
	if !ok {
		return store.SessionRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *SessionStore) Put(_ context.Context, rec store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.IdentityID] = rec
	return nil
}

func (s *SessionStore) Delete(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, identityID)
	return nil
}

func (s *SessionStore) ExpiredBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, rec := range s.data {
		if rec.ExpiresAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
)

// CardBindingStore keeps card bindings in memory.  It holds a reference to
// the session store so Bind can remove the winning identity's enrollment
// session in the same critical section, matching the sqlite store's
// single-transaction behavior.
type CardBindingStore struct {
	mu       sync.Mutex
	byCard   map[string]store.CardBindingRecord
	sessions *SessionStore
}

func NewCardBindingStore(sessions *SessionStore) *CardBindingStore {
	return &CardBindingStore{
		byCard:   make(map[string]store.CardBindingRecord),
		sessions: sessions,
	}
}

func (s *CardBindingStore) FindByCard(_ context.Context, cardID string) (store.CardBindingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byCard[cardID]
	if !ok {
		return store.CardBindingRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *CardBindingStore) CountForIdentity(_ context.Context, identityID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.byCard {
		if rec.IdentityID == identityID {
			n++
		}
	}
	return n, nil
}

func (s *CardBindingStore) Bind(ctx context.Context, rec store.CardBindingRecord) error {
	if rec.BoundAt.IsZero() {
		rec.BoundAt = time.Now().UTC()
	}

	s.mu.Lock()
	if existing, ok := s.byCard[rec.CardID]; ok && existing.IdentityID != rec.IdentityID {
		s.mu.Unlock()
		return store.ErrDuplicateCard
	}
	s.byCard[rec.CardID] = rec
	s.mu.Unlock()

	return s.sessions.Delete(ctx, rec.IdentityID)
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

// AuditStore is an in-memory append-only audit log.  It is intended for use
// in tests and dev environments.
type AuditStore struct {
	mu      sync.Mutex
	records []store.AuditRecord
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(_ context.Context, rec store.AuditRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of all appended records.  Test-only helper.
func (s *AuditStore) Records() []store.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

// CountByAction returns how many records exist for cardID with the given
// action.  Test-only helper.
func (s *AuditStore) CountByAction(cardID string, action types.AuditAction) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if rec.CardID == cardID && rec.Action == action {
			n++
		}
	}
	return n
}

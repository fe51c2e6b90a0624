package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/s112213021-sketch/midorSys/internal/db"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
)

type IdentityStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewIdentityStore(db *sql.DB, writer *dbpkg.Worker) *IdentityStore {
	return &IdentityStore{db: db, writer: writer}
}

func (s *IdentityStore) Get(ctx context.Context, identityID string) (store.IdentityRecord, error) {
	identityID = strings.TrimSpace(identityID)

	var displayName string
	var createdMs int64

	err := s.db.QueryRowContext(ctx, `
SELECT display_name, created_at_ms FROM identities WHERE identity_id = ?;
`, identityID).Scan(&displayName, &createdMs)

	if err == sql.ErrNoRows {
		return store.IdentityRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.IdentityRecord{}, fmt.Errorf("identity Get: %w", err)
	}

	return store.IdentityRecord{
		IdentityID:  identityID,
		DisplayName: displayName,
		CreatedAt:   time.UnixMilli(createdMs).UTC(),
	}, nil
}

func (s *IdentityStore) Put(ctx context.Context, rec store.IdentityRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	createdMs := rec.CreatedAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO identities(identity_id, display_name, created_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(identity_id) DO UPDATE SET
  display_name = excluded.display_name;
`, rec.IdentityID, rec.DisplayName, createdMs); err != nil {
			return fmt.Errorf("identity Put: %w", err)
		}
		return nil
	})
}

func (s *IdentityStore) Delete(ctx context.Context, identityID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM identities WHERE identity_id = ?;
`, identityID); err != nil {
			return fmt.Errorf("identity Delete: %w", err)
		}
		return nil
	})
}

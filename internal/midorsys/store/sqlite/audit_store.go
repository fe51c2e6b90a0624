package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/s112213021-sketch/midorSys/internal/db"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
)

type AuditStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAuditStore(db *sql.DB, writer *dbpkg.Worker) *AuditStore {
	return &AuditStore{db: db, writer: writer}
}

func (s *AuditStore) Append(ctx context.Context, rec store.AuditRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	createdMs := rec.CreatedAt.UTC().UnixMilli()

	// Unknown cards produce a NULL identity.
	var identityID any
	if rec.IdentityID != "" {
		identityID = rec.IdentityID
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO audit_log(identity_id, card_id, action, created_at_ms)
VALUES (?, ?, ?, ?);
`, identityID, rec.CardID, string(rec.Action), createdMs); err != nil {
			return fmt.Errorf("audit Append: %w", err)
		}
		return nil
	})
}

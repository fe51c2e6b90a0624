package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/s112213021-sketch/midorSys/internal/db"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
)

type CardBindingStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCardBindingStore(db *sql.DB, writer *dbpkg.Worker) *CardBindingStore {
	return &CardBindingStore{db: db, writer: writer}
}

func (s *CardBindingStore) FindByCard(ctx context.Context, cardID string) (store.CardBindingRecord, error) {
	var identityID string
	var boundMs int64

	err := s.db.QueryRowContext(ctx, `
SELECT identity_id, bound_at_ms FROM card_bindings WHERE card_id = ?;
`, cardID).Scan(&identityID, &boundMs)

	if err == sql.ErrNoRows {
		return store.CardBindingRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.CardBindingRecord{}, fmt.Errorf("binding FindByCard: %w", err)
	}

	return store.CardBindingRecord{
		CardID:     cardID,
		IdentityID: identityID,
		BoundAt:    time.UnixMilli(boundMs).UTC(),
	}, nil
}

func (s *CardBindingStore) CountForIdentity(ctx context.Context, identityID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM card_bindings WHERE identity_id = ?;
`, identityID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("binding CountForIdentity: %w", err)
	}
	return n, nil
}

// Bind creates the binding and deletes the identity's enrollment session in
// one transaction on the single-writer worker.  The in-transaction ownership
// check plus the PRIMARY KEY on card_id guarantee that of two racing binds
// for the same card exactly one commits; the other sees ErrDuplicateCard.
func (s *CardBindingStore) Bind(ctx context.Context, rec store.CardBindingRecord) error {
	if rec.BoundAt.IsZero() {
		rec.BoundAt = time.Now().UTC()
	}
	boundMs := rec.BoundAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `
SELECT identity_id FROM card_bindings WHERE card_id = ?;
`, rec.CardID).Scan(&owner)

		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx, `
INSERT INTO card_bindings(card_id, identity_id, bound_at_ms)
VALUES (?, ?, ?);
`, rec.CardID, rec.IdentityID, boundMs); err != nil {
				return fmt.Errorf("Bind insert: %w", err)
			}
		case err != nil:
			return fmt.Errorf("Bind ownership check: %w", err)
		case owner != rec.IdentityID:
			return store.ErrDuplicateCard
		}

		// Binding exists (created above, or a re-submit of an identical
		// bind): the session has served its purpose either way.
		if _, err := tx.ExecContext(ctx, `
DELETE FROM enrollment_sessions WHERE identity_id = ?;
`, rec.IdentityID); err != nil {
			return fmt.Errorf("Bind delete session: %w", err)
		}

		return nil
	})
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/s112213021-sketch/midorSys/internal/db"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

type SessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSessionStore(db *sql.DB, writer *dbpkg.Worker) *SessionStore {
	return &SessionStore{db: db, writer: writer}
}

func (s *SessionStore) Get(ctx context.Context, identityID string) (store.SessionRecord, error) {
	var state string
	var pending sql.NullString
	var expiresMs int64

	err := s.db.QueryRowContext(ctx, `
SELECT state, pending_card_id, expires_at_ms
FROM enrollment_sessions
WHERE identity_id = ?;
`, identityID).Scan(&state, &pending, &expiresMs)

	if err == sql.ErrNoRows {
		return store.SessionRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("session Get: %w", err)
	}

	rec := store.SessionRecord{
		IdentityID: identityID,
		State:      types.SessionState(state),
		ExpiresAt:  time.UnixMilli(expiresMs).UTC(),
	}
	if pending.Valid {
		rec.PendingCardID = pending.String
	}
	return rec, nil
}

func (s *SessionStore) Put(ctx context.Context, rec store.SessionRecord) error {
	nowMs := time.Now().UTC().UnixMilli()
	expiresMs := rec.ExpiresAt.UTC().UnixMilli()

	var pending any
	if rec.PendingCardID != "" {
		pending = rec.PendingCardID
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO enrollment_sessions(identity_id, state, pending_card_id, expires_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(identity_id) DO UPDATE SET
  state           = excluded.state,
  pending_card_id = excluded.pending_card_id,
  expires_at_ms   = excluded.expires_at_ms,
  updated_at_ms   = excluded.updated_at_ms;
`, rec.IdentityID, string(rec.State), pending, expiresMs, nowMs); err != nil {
			return fmt.Errorf("session Put: %w", err)
		}
		return nil
	})
}

func (s *SessionStore) Delete(ctx context.Context, identityID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM enrollment_sessions WHERE identity_id = ?;
`, identityID); err != nil {
			return fmt.Errorf("session Delete: %w", err)
		}
		return nil
	})
}

func (s *SessionStore) ExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT identity_id FROM enrollment_sessions WHERE expires_at_ms < ?;
`, cutoff.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("session ExpiredBefore: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("session ExpiredBefore scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a registered identity and one pre-bound card so the gate
// path can be exercised immediately on a fresh dev database.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO identities(identity_id, display_name, created_at_ms)
VALUES ('s0000001', 'Dev Member', ?);`, now); err != nil {
		return fmt.Errorf("seed identity: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO card_bindings(card_id, identity_id, bound_at_ms)
VALUES ('DEADBEEF', 's0000001', ?);`, now); err != nil {
		return fmt.Errorf("seed card binding: %w", err)
	}

	return nil
}

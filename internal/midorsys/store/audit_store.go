package store

import (
	"context"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

// AuditRecord captures a single scan event and its outcome.  An empty
// IdentityID means the card was unknown (stored as NULL).
type AuditRecord struct {
	IdentityID string
	CardID     string
	Action     types.AuditAction
	CreatedAt  time.Time
}

// AuditStore persists scan events as an append-only audit log.  Records are
// never mutated or deleted; the log is the durable source of truth for
// external reporting.
type AuditStore interface {
	Append(ctx context.Context, rec AuditRecord) error
}

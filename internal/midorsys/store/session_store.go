package store

import (
	"context"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

// SessionRecord is one identity's in-progress enrollment.  At most one row
// exists per identity; the identity_id is the key.
type SessionRecord struct {
	IdentityID    string
	State         types.SessionState
	PendingCardID string // set only in awaiting_confirm_scan
	ExpiresAt     time.Time
}

type SessionStore interface {
	// Get returns the session row for identityID, or ErrNotFound.  Expiry is
	// not evaluated here — the caller owns the lazy-expiry rule.
	Get(ctx context.Context, identityID string) (SessionRecord, error)

	// Put creates or replaces the identity's session row.
	Put(ctx context.Context, rec SessionRecord) error

	Delete(ctx context.Context, identityID string) error

	// ExpiredBefore lists identity ids whose sessions expired before cutoff,
	// for the background sweep.
	ExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

package store

import (
	"context"
	"time"
)

type IdentityRecord struct {
	IdentityID  string
	DisplayName string
	CreatedAt   time.Time
}

type IdentityStore interface {
	Get(ctx context.Context, identityID string) (IdentityRecord, error)

	// Put creates or updates an identity.  Registration re-submits are
	// expected; the display name is simply refreshed.
	Put(ctx context.Context, rec IdentityRecord) error

	Delete(ctx context.Context, identityID string) error
}

package store

import (
	"context"
	"time"
)

type CardBindingRecord struct {
	CardID     string
	IdentityID string
	BoundAt    time.Time
}

// CardBindingStore owns the card_id uniqueness invariant: a card maps to at
// most one identity at any instant, and only Bind may create a binding.
type CardBindingStore interface {
	// FindByCard returns the binding for cardID, or ErrNotFound.
	FindByCard(ctx context.Context, cardID string) (CardBindingRecord, error)

	// CountForIdentity returns how many cards the identity has bound.
	CountForIdentity(ctx context.Context, identityID string) (int, error)

	// Bind atomically checks that rec.CardID is not bound to another
	// identity, creates the binding, and deletes the identity's enrollment
	// session.  The check and the insert are one unit: of two concurrent
	// binds for the same card, exactly one succeeds and the other gets
	// ErrDuplicateCard.
	Bind(ctx context.Context, rec CardBindingRecord) error
}

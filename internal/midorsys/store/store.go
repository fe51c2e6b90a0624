package store

import "errors"

var (
	// ErrNotFound is returned by point lookups when no row exists.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCard is returned by CardBindingStore.Bind when the card is
	// already bound to a different identity.  This is the loser's signal in a
	// concurrent same-card enrollment race.
	ErrDuplicateCard = errors.New("card already bound")
)

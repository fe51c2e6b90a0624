package service

import "errors"

var (
	ErrInvalidIdentityID  = errors.New("identity_id is required")
	ErrInvalidCardID      = errors.New("card_id is required")
	ErrInvalidDisplayName = errors.New("display_name is required")

	// ErrIdentityNotFound: enrollment requires a registered identity.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrAlreadyBound: the identity already has a bound card and cannot
	// re-enroll (single-card policy).
	ErrAlreadyBound = errors.New("identity already has a bound card")

	// ErrNoActiveSession: no session, or the session expired.  The member
	// must restart enrollment.
	ErrNoActiveSession = errors.New("no active enrollment session")

	// ErrCardAlreadyBound: the presented card belongs to another identity.
	// The member must use a different card.
	ErrCardAlreadyBound = errors.New("card already bound to another identity")
)

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

// DefaultSessionTTL is the enrollment window: a session untouched for this
// long is treated as abandoned.
const DefaultSessionTTL = 90 * time.Second

// notifyTimeout bounds each fire-and-forget outbound call.
const notifyTimeout = 5 * time.Second

// EnrollmentService runs the two-scan binding ritual.  All transitions for
// one identity are serialized through a per-identity mutex; the card_id
// uniqueness invariant is enforced by the binding store's atomic Bind.
type EnrollmentService struct {
	identities store.IdentityStore
	bindings   store.CardBindingStore
	sessions   store.SessionStore
	audit      store.AuditStore
	notifier   Notifier
	activator  ReaderActivator
	ttl        time.Duration
	logger     *log.Logger
	locks      *identityLocks
}

type EnrollmentDeps struct {
	Identities store.IdentityStore
	Bindings   store.CardBindingStore
	Sessions   store.SessionStore
	Audit      store.AuditStore

	// Notifier and Activator may be nil; no-op implementations are used.
	Notifier  Notifier
	Activator ReaderActivator

	// SessionTTL defaults to DefaultSessionTTL when zero.
	SessionTTL time.Duration

	Logger *log.Logger
}

func NewEnrollmentService(d EnrollmentDeps) *EnrollmentService {
	if d.Notifier == nil {
		d.Notifier = NopNotifier{}
	}
	if d.Activator == nil {
		d.Activator = NopActivator{}
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = DefaultSessionTTL
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}

	return &EnrollmentService{
		identities: d.Identities,
		bindings:   d.Bindings,
		sessions:   d.Sessions,
		audit:      d.Audit,
		notifier:   d.Notifier,
		activator:  d.Activator,
		ttl:        d.SessionTTL,
		logger:     d.Logger,
		locks:      newIdentityLocks(),
	}
}

// Register creates or refreshes an identity ahead of enrollment.  An
// identity that already holds a bound card cannot re-register.
func (s *EnrollmentService) Register(ctx context.Context, identityID, displayName string) error {
	identityID = strings.TrimSpace(identityID)
	displayName = strings.TrimSpace(displayName)

	if identityID == "" {
		return ErrInvalidIdentityID
	}
	if displayName == "" {
		return ErrInvalidDisplayName
	}

	unlock := s.locks.lock(identityID)
	defer unlock()

	n, err := s.bindings.CountForIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrAlreadyBound
	}

	if err := s.identities.Put(ctx, store.IdentityRecord{
		IdentityID:  identityID,
		DisplayName: displayName,
	}); err != nil {
		return err
	}

	s.notifyAsync(fmt.Sprintf("registered: %s (%s)", displayName, identityID))
	return nil
}

// StartSession opens (or restarts) the enrollment window for an identity.
// Restarting before completion is deliberate: a re-submitted enrollment form
// simply resets the timer and discards any pending first scan.
func (s *EnrollmentService) StartSession(ctx context.Context, identityID string) error {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return ErrInvalidIdentityID
	}

	unlock := s.locks.lock(identityID)
	defer unlock()

	if _, err := s.identities.Get(ctx, identityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return err
	}

	n, err := s.bindings.CountForIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrAlreadyBound
	}

	if err := s.sessions.Put(ctx, store.SessionRecord{
		IdentityID: identityID,
		State:      types.StateAwaitingFirstScan,
		ExpiresAt:  time.Now().UTC().Add(s.ttl),
	}); err != nil {
		return err
	}

	s.activateAsync(identityID)
	return nil
}

// SubmitScan advances the state machine by one scan event.
func (s *EnrollmentService) SubmitScan(ctx context.Context, identityID, cardID string) (types.EnrollOutcome, error) {
	identityID = strings.TrimSpace(identityID)
	cardID = strings.TrimSpace(cardID)

	if identityID == "" {
		return "", ErrInvalidIdentityID
	}
	if cardID == "" {
		return "", ErrInvalidCardID
	}

	unlock := s.locks.lock(identityID)
	defer unlock()

	now := time.Now().UTC()

	sess, err := s.sessions.Get(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoActiveSession
	}
	if err != nil {
		return "", err
	}
	if !sess.ExpiresAt.After(now) {
		// Lazy expiry: the row is reaped here, but correctness never
		// depends on the delete landing — an expired row reads as absent.
		_ = s.sessions.Delete(ctx, identityID)
		return "", ErrNoActiveSession
	}

	switch sess.State {
	case types.StateAwaitingFirstScan:
		return s.firstScan(ctx, sess, cardID, now)
	case types.StateAwaitingConfirmScan:
		return s.confirmScan(ctx, sess, cardID, now)
	default:
		return "", fmt.Errorf("unexpected session state %q for %s", sess.State, identityID)
	}
}

func (s *EnrollmentService) firstScan(ctx context.Context, sess store.SessionRecord, cardID string, now time.Time) (types.EnrollOutcome, error) {
	owner, err := s.bindings.FindByCard(ctx, cardID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	if err == nil && owner.IdentityID != sess.IdentityID {
		// Session stays in awaiting_first_scan; the member tries another card.
		return "", ErrCardAlreadyBound
	}

	sess.State = types.StateAwaitingConfirmScan
	sess.PendingCardID = cardID
	sess.ExpiresAt = now.Add(s.ttl)
	if err := s.sessions.Put(ctx, sess); err != nil {
		return "", err
	}

	s.recordAudit(ctx, sess.IdentityID, cardID, types.ActionScanFirst, now)
	return types.OutcomeFirstScanAccepted, nil
}

func (s *EnrollmentService) confirmScan(ctx context.Context, sess store.SessionRecord, cardID string, now time.Time) (types.EnrollOutcome, error) {
	s.recordAudit(ctx, sess.IdentityID, cardID, types.ActionScanConfirm, now)

	if cardID != sess.PendingCardID {
		// Mismatch resets the pairing, not the whole enrollment window.
		sess.State = types.StateAwaitingFirstScan
		sess.PendingCardID = ""
		sess.ExpiresAt = now.Add(s.ttl)
		if err := s.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		s.recordAudit(ctx, sess.IdentityID, cardID, types.ActionBindMismatch, now)
		return types.OutcomeMismatchRetry, nil
	}

	// The card could have been claimed by a concurrent enrollment since the
	// first scan; Bind re-checks ownership and inserts in one atomic unit.
	err := s.bindings.Bind(ctx, store.CardBindingRecord{
		CardID:     cardID,
		IdentityID: sess.IdentityID,
		BoundAt:    now,
	})
	if errors.Is(err, store.ErrDuplicateCard) {
		// Lost the race: force a full restart.
		_ = s.sessions.Delete(ctx, sess.IdentityID)
		return "", ErrCardAlreadyBound
	}
	if err != nil {
		// Correctness-critical write; never swallowed.
		return "", err
	}

	s.recordAudit(ctx, sess.IdentityID, cardID, types.ActionBind, now)

	name := sess.IdentityID
	if rec, err := s.identities.Get(ctx, sess.IdentityID); err == nil {
		name = fmt.Sprintf("%s (%s)", rec.DisplayName, rec.IdentityID)
	}
	s.notifyAsync(fmt.Sprintf("card bound: %s", name))

	return types.OutcomeBound, nil
}

// CancelSession abandons an in-progress enrollment.  The still-unbound
// identity is deleted with it — the registration was never completed, so
// the cascade is cleanup, not data loss.
func (s *EnrollmentService) CancelSession(ctx context.Context, identityID string) error {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return ErrInvalidIdentityID
	}

	unlock := s.locks.lock(identityID)
	defer unlock()

	if _, err := s.sessions.Get(ctx, identityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoActiveSession
		}
		return err
	}

	return s.cancelLocked(ctx, identityID)
}

// cancelLocked deletes the session and cascades to the identity when no
// card was ever bound.  Caller holds the identity lock.
func (s *EnrollmentService) cancelLocked(ctx context.Context, identityID string) error {
	if err := s.sessions.Delete(ctx, identityID); err != nil {
		return err
	}

	n, err := s.bindings.CountForIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	if n == 0 {
		if err := s.identities.Delete(ctx, identityID); err != nil {
			return err
		}
		s.notifyAsync(fmt.Sprintf("enrollment abandoned: %s", identityID))
	}
	return nil
}

// HasActiveSession reports whether a non-expired session exists.  Used by
// the scan router to choose between the enrollment and gate paths.
func (s *EnrollmentService) HasActiveSession(ctx context.Context, identityID string) (bool, error) {
	sess, err := s.sessions.Get(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sess.ExpiresAt.After(time.Now().UTC()), nil
}

// Status is the read-only projection for polling UIs.
func (s *EnrollmentService) Status(ctx context.Context, identityID string) (types.EnrollmentStatus, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return types.EnrollmentStatus{}, ErrInvalidIdentityID
	}

	if _, err := s.identities.Get(ctx, identityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.EnrollmentStatus{}, ErrIdentityNotFound
		}
		return types.EnrollmentStatus{}, err
	}

	n, err := s.bindings.CountForIdentity(ctx, identityID)
	if err != nil {
		return types.EnrollmentStatus{}, err
	}

	status := types.EnrollmentStatus{State: "none", Bound: n > 0}

	sess, err := s.sessions.Get(ctx, identityID)
	if err == nil && sess.ExpiresAt.After(time.Now().UTC()) {
		status.State = string(sess.State)
		status.ExpiresAt = sess.ExpiresAt.Format(time.RFC3339)
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return types.EnrollmentStatus{}, err
	}

	return status, nil
}

// ReapExpired cancels every session that expired before now, with the same
// cascading cleanup as CancelSession.  Called by the background sweeper;
// lazy expiry on read remains the authoritative rule.
func (s *EnrollmentService) ReapExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.sessions.ExpiredBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, id := range ids {
		unlock := s.locks.lock(id)

		// Re-check under the lock: a concurrent StartSession may have
		// refreshed the window since the listing.
		sess, err := s.sessions.Get(ctx, id)
		if err == nil && !sess.ExpiresAt.After(now) {
			if err := s.cancelLocked(ctx, id); err != nil {
				s.logger.Printf("reap %s: %v", id, err)
			} else {
				reaped++
			}
		}

		unlock()
	}
	return reaped, nil
}

// recordAudit persists a scan event to the audit log.  Errors are
// intentionally not returned to the caller — a failed audit write should
// not prevent the member from completing a scan step.
func (s *EnrollmentService) recordAudit(ctx context.Context, identityID, cardID string, action types.AuditAction, at time.Time) {
	_ = s.audit.Append(ctx, store.AuditRecord{
		IdentityID: identityID,
		CardID:     cardID,
		Action:     action,
		CreatedAt:  at,
	})
}

func (s *EnrollmentService) notifyAsync(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		s.notifier.Notify(ctx, text)
	}()
}

func (s *EnrollmentService) activateAsync(identityID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.activator.EnterEnrollMode(ctx, identityID); err != nil {
			s.logger.Printf("reader activation for %s: %v", identityID, err)
		}
	}()
}

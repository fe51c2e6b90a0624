package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/service"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/store/memory"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type enrollmentFixture struct {
	svc        *service.EnrollmentService
	identities *memory.IdentityStore
	bindings   *memory.CardBindingStore
	sessions   *memory.SessionStore
	audit      *memory.AuditStore
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()

	identities := memory.NewIdentityStore()
	sessions := memory.NewSessionStore()
	bindings := memory.NewCardBindingStore(sessions)
	audit := memory.NewAuditStore()

	svc := service.NewEnrollmentService(service.EnrollmentDeps{
		Identities: identities,
		Bindings:   bindings,
		Sessions:   sessions,
		Audit:      audit,
		Logger:     silentLogger(),
	})

	return &enrollmentFixture{
		svc:        svc,
		identities: identities,
		bindings:   bindings,
		sessions:   sessions,
		audit:      audit,
	}
}

func (fx *enrollmentFixture) register(t *testing.T, identityID, displayName string) {
	t.Helper()
	if err := fx.svc.Register(context.Background(), identityID, displayName); err != nil {
		t.Fatalf("Register(%s): %v", identityID, err)
	}
}

func (fx *enrollmentFixture) startSession(t *testing.T, identityID string) {
	t.Helper()
	if err := fx.svc.StartSession(context.Background(), identityID); err != nil {
		t.Fatalf("StartSession(%s): %v", identityID, err)
	}
}

// ── Registration ─────────────────────────────────────────────────────────────

func TestRegister_RejectsEmptyFields(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	if err := fx.svc.Register(ctx, "", "Alice"); !errors.Is(err, service.ErrInvalidIdentityID) {
		t.Errorf("expected ErrInvalidIdentityID, got %v", err)
	}
	if err := fx.svc.Register(ctx, "s001", ""); !errors.Is(err, service.ErrInvalidDisplayName) {
		t.Errorf("expected ErrInvalidDisplayName, got %v", err)
	}
}

func TestRegister_ResubmitRefreshesName(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.register(t, "s001", "Alice L.")

	rec, err := fx.identities.Get(ctx, "s001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.DisplayName != "Alice L." {
		t.Errorf("expected refreshed name, got %q", rec.DisplayName)
	}
}

func TestRegister_BoundIdentityRejected(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	if err := fx.bindings.Bind(ctx, store.CardBindingRecord{CardID: "CARD-A", IdentityID: "s001"}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if err := fx.svc.Register(ctx, "s001", "Alice again"); !errors.Is(err, service.ErrAlreadyBound) {
		t.Errorf("expected ErrAlreadyBound, got %v", err)
	}
}

// ── StartSession ─────────────────────────────────────────────────────────────

func TestStartSession_UnknownIdentity(t *testing.T) {
	fx := newEnrollmentFixture(t)

	err := fx.svc.StartSession(context.Background(), "ghost")
	if !errors.Is(err, service.ErrIdentityNotFound) {
		t.Errorf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestStartSession_AlreadyBoundIdentity(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	if err := fx.bindings.Bind(ctx, store.CardBindingRecord{CardID: "CARD-A", IdentityID: "s001"}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if err := fx.svc.StartSession(ctx, "s001"); !errors.Is(err, service.ErrAlreadyBound) {
		t.Errorf("expected ErrAlreadyBound, got %v", err)
	}
}

func TestStartSession_RestartDiscardsPendingScan(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.startSession(t, "s001")

	if _, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A"); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	// Re-submitting the enrollment form restarts the ritual.
	fx.startSession(t, "s001")

	sess, err := fx.sessions.Get(ctx, "s001")
	if err != nil {
		t.Fatalf("session Get: %v", err)
	}
	if sess.State != types.StateAwaitingFirstScan {
		t.Errorf("expected awaiting_first_scan after restart, got %q", sess.State)
	}
	if sess.PendingCardID != "" {
		t.Errorf("expected pending card cleared, got %q", sess.PendingCardID)
	}
}

// ── SubmitScan ───────────────────────────────────────────────────────────────

func TestSubmitScan_NoSession(t *testing.T) {
	fx := newEnrollmentFixture(t)

	fx.register(t, "s001", "Alice")
	_, err := fx.svc.SubmitScan(context.Background(), "s001", "CARD-A")
	if !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestSubmitScan_HappyPathBinds(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.startSession(t, "s001")

	outcome, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A")
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if outcome != types.OutcomeFirstScanAccepted {
		t.Fatalf("expected first_scan_ok, got %q", outcome)
	}

	outcome, err = fx.svc.SubmitScan(ctx, "s001", "CARD-A")
	if err != nil {
		t.Fatalf("confirm scan: %v", err)
	}
	if outcome != types.OutcomeBound {
		t.Fatalf("expected bound, got %q", outcome)
	}

	// Session gone, binding present.
	if _, err := fx.sessions.Get(ctx, "s001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected session deleted, got %v", err)
	}
	binding, err := fx.bindings.FindByCard(ctx, "CARD-A")
	if err != nil {
		t.Fatalf("FindByCard: %v", err)
	}
	if binding.IdentityID != "s001" {
		t.Errorf("expected binding to s001, got %q", binding.IdentityID)
	}

	// Audit trail: SCAN_FIRST, SCAN_CONFIRM, BIND.
	for _, action := range []types.AuditAction{types.ActionScanFirst, types.ActionScanConfirm, types.ActionBind} {
		if n := fx.audit.CountByAction("CARD-A", action); n != 1 {
			t.Errorf("expected 1 %s record, got %d", action, n)
		}
	}

	// The new binding resolves at the gate.
	gate := service.NewGateService(fx.identities, fx.bindings, fx.audit, nil)
	dec, err := gate.Authorize(ctx, "CARD-A")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !dec.Allowed || dec.IdentityID != "s001" {
		t.Errorf("expected allow for s001, got %+v", dec)
	}
}

func TestSubmitScan_MismatchResetsThenRebinds(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.startSession(t, "s001")

	if _, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A"); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	outcome, err := fx.svc.SubmitScan(ctx, "s001", "CARD-B")
	if err != nil {
		t.Fatalf("mismatch scan: %v", err)
	}
	if outcome != types.OutcomeMismatchRetry {
		t.Fatalf("expected mismatch_retry, got %q", outcome)
	}
	if n := fx.audit.CountByAction("CARD-B", types.ActionBindMismatch); n != 1 {
		t.Errorf("expected 1 BIND_MISMATCH record, got %d", n)
	}

	sess, err := fx.sessions.Get(ctx, "s001")
	if err != nil {
		t.Fatalf("session Get: %v", err)
	}
	if sess.State != types.StateAwaitingFirstScan || sess.PendingCardID != "" {
		t.Fatalf("expected reset to awaiting_first_scan, got %+v", sess)
	}

	// The same window still accepts a clean pairing.
	if _, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A"); err != nil {
		t.Fatalf("retry first scan: %v", err)
	}
	outcome, err = fx.svc.SubmitScan(ctx, "s001", "CARD-A")
	if err != nil {
		t.Fatalf("retry confirm scan: %v", err)
	}
	if outcome != types.OutcomeBound {
		t.Errorf("expected bound after retry, got %q", outcome)
	}
}

func TestSubmitScan_ExpiredSessionReadsAsAbsent(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")

	// The row physically exists but expired a minute ago.
	if err := fx.sessions.Put(ctx, store.SessionRecord{
		IdentityID: "s001",
		State:      types.StateAwaitingFirstScan,
		ExpiresAt:  time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A")
	if !errors.Is(err, service.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	// Lazy reap removed the stale row.
	if _, err := fx.sessions.Get(ctx, "s001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected stale session reaped, got %v", err)
	}
}

func TestSubmitScan_FirstScanRejectsForeignCard(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.register(t, "s002", "Bob")
	if err := fx.bindings.Bind(ctx, store.CardBindingRecord{CardID: "CARD-A", IdentityID: "s002"}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	fx.startSession(t, "s001")

	_, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A")
	if !errors.Is(err, service.ErrCardAlreadyBound) {
		t.Fatalf("expected ErrCardAlreadyBound, got %v", err)
	}

	// First-scan collision keeps the window open for another card.
	sess, err := fx.sessions.Get(ctx, "s001")
	if err != nil {
		t.Fatalf("session Get: %v", err)
	}
	if sess.State != types.StateAwaitingFirstScan {
		t.Errorf("expected awaiting_first_scan, got %q", sess.State)
	}
}

func TestSubmitScan_ConfirmLosesRaceDeletesSession(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.register(t, "s002", "Bob")
	fx.startSession(t, "s001")

	if _, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A"); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	// Another enrollment claims the card between the two scans.
	if err := fx.bindings.Bind(ctx, store.CardBindingRecord{CardID: "CARD-A", IdentityID: "s002"}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	_, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A")
	if !errors.Is(err, service.ErrCardAlreadyBound) {
		t.Fatalf("expected ErrCardAlreadyBound, got %v", err)
	}

	// Confirm-scan collision forces a full restart.
	if _, err := fx.sessions.Get(ctx, "s001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected session deleted, got %v", err)
	}
}

func TestSubmitScan_ConcurrentConfirm_ExactlyOneWins(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.register(t, "s002", "Bob")
	fx.startSession(t, "s001")
	fx.startSession(t, "s002")

	// Both identities first-scan the same unbound card.
	if _, err := fx.svc.SubmitScan(ctx, "s001", "CARD-X"); err != nil {
		t.Fatalf("s001 first scan: %v", err)
	}
	if _, err := fx.svc.SubmitScan(ctx, "s002", "CARD-X"); err != nil {
		t.Fatalf("s002 first scan: %v", err)
	}

	type result struct {
		outcome types.EnrollOutcome
		err     error
	}
	results := make([]result, 2)

	var wg sync.WaitGroup
	for i, id := range []string{"s001", "s002"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := fx.svc.SubmitScan(ctx, id, "CARD-X")
			results[i] = result{outcome, err}
		}()
	}
	wg.Wait()

	var bound, lost int
	for _, r := range results {
		switch {
		case r.err == nil && r.outcome == types.OutcomeBound:
			bound++
		case errors.Is(r.err, service.ErrCardAlreadyBound):
			lost++
		default:
			t.Errorf("unexpected result: outcome=%q err=%v", r.outcome, r.err)
		}
	}
	if bound != 1 || lost != 1 {
		t.Fatalf("expected exactly one winner and one loser, got bound=%d lost=%d", bound, lost)
	}

	if n := fx.audit.CountByAction("CARD-X", types.ActionBind); n != 1 {
		t.Errorf("expected exactly 1 BIND record, got %d", n)
	}
}

// ── CancelSession ────────────────────────────────────────────────────────────

func TestCancelSession_CascadesToUnboundIdentity(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.startSession(t, "s001")

	if err := fx.svc.CancelSession(ctx, "s001"); err != nil {
		t.Fatalf("CancelSession: %v", err)
	}

	if _, err := fx.sessions.Get(ctx, "s001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected session deleted, got %v", err)
	}
	if _, err := fx.identities.Get(ctx, "s001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected unbound identity deleted, got %v", err)
	}
}

func TestCancelSession_NoSession(t *testing.T) {
	fx := newEnrollmentFixture(t)

	fx.register(t, "s001", "Alice")
	err := fx.svc.CancelSession(context.Background(), "s001")
	if !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}

// ── Expiry sweep ─────────────────────────────────────────────────────────────

func TestReapExpired_CancelsAbandonedEnrollments(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	fx.register(t, "s002", "Bob")

	now := time.Now().UTC()
	if err := fx.sessions.Put(ctx, store.SessionRecord{
		IdentityID: "s001",
		State:      types.StateAwaitingFirstScan,
		ExpiresAt:  now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Put expired: %v", err)
	}
	fx.startSession(t, "s002") // live window

	reaped, err := fx.svc.ReapExpired(ctx, now)
	if err != nil {
		t.Fatalf("ReapExpired: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("expected 1 reaped, got %d", reaped)
	}

	if _, err := fx.identities.Get(ctx, "s001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected abandoned identity deleted, got %v", err)
	}
	if _, err := fx.sessions.Get(ctx, "s002"); err != nil {
		t.Errorf("expected live session untouched, got %v", err)
	}
}

// ── Status projection ────────────────────────────────────────────────────────

func TestStatus_ReflectsStateAndBinding(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")

	status, err := fx.svc.Status(ctx, "s001")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != "none" || status.Bound {
		t.Errorf("expected none/unbound, got %+v", status)
	}

	fx.startSession(t, "s001")
	status, err = fx.svc.Status(ctx, "s001")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != string(types.StateAwaitingFirstScan) {
		t.Errorf("expected awaiting_first_scan, got %q", status.State)
	}

	if _, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A"); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if _, err := fx.svc.SubmitScan(ctx, "s001", "CARD-A"); err != nil {
		t.Fatalf("confirm scan: %v", err)
	}

	status, err = fx.svc.Status(ctx, "s001")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != "none" || !status.Bound {
		t.Errorf("expected none/bound after completion, got %+v", status)
	}
}

func TestStatus_UnknownIdentity(t *testing.T) {
	fx := newEnrollmentFixture(t)

	_, err := fx.svc.Status(context.Background(), "ghost")
	if !errors.Is(err, service.ErrIdentityNotFound) {
		t.Errorf("expected ErrIdentityNotFound, got %v", err)
	}
}

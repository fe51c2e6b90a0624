package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/service"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

func TestSessionSweeper_DisabledWhenIntervalZero(t *testing.T) {
	fx := newEnrollmentFixture(t)
	sweeper := service.NewSessionSweeper(fx.svc, 0, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)
	// Stop should return immediately without error.
	sweeper.Stop()
}

func TestSessionSweeper_ReapsExpiredSessions(t *testing.T) {
	fx := newEnrollmentFixture(t)
	ctx := context.Background()

	fx.register(t, "s001", "Alice")
	if err := fx.sessions.Put(ctx, store.SessionRecord{
		IdentityID: "s001",
		State:      types.StateAwaitingConfirmScan,
		ExpiresAt:  time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Run the same operation the sweeper loop calls.
	reaped, err := fx.svc.ReapExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("ReapExpired: %v", err)
	}
	if reaped != 1 {
		t.Errorf("expected 1 reaped, got %d", reaped)
	}

	if _, err := fx.sessions.Get(ctx, "s001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected session removed, got %v", err)
	}
}

func TestSessionSweeper_StopIsIdempotentAfterCancel(t *testing.T) {
	fx := newEnrollmentFixture(t)
	sweeper := service.NewSessionSweeper(fx.svc, time.Hour, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)

	cancel()
	// Multiple stops should not panic.
	sweeper.Stop()
	sweeper.Stop()
}

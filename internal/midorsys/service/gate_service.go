package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/store"
	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

// GateService decides allow/deny for a scan outside any enrollment session.
// Pure lookup plus one audit write; unknown cards are a normal deny, not a
// fault.
type GateService struct {
	identities store.IdentityStore
	bindings   store.CardBindingStore
	audit      store.AuditStore
	notifier   Notifier
}

func NewGateService(
	identities store.IdentityStore,
	bindings store.CardBindingStore,
	audit store.AuditStore,
	notifier Notifier,
) *GateService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &GateService{
		identities: identities,
		bindings:   bindings,
		audit:      audit,
		notifier:   notifier,
	}
}

func (s *GateService) Authorize(ctx context.Context, cardID string) (types.GateDecision, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return types.GateDecision{}, ErrInvalidCardID
	}

	now := time.Now().UTC()

	binding, err := s.bindings.FindByCard(ctx, cardID)
	if errors.Is(err, store.ErrNotFound) {
		s.recordAudit(ctx, "", cardID, types.ActionEntryDeny, now)
		s.notifyAsync(fmt.Sprintf("entry denied: unknown card %s", cardID))
		return types.GateDecision{Allowed: false}, nil
	}
	if err != nil {
		return types.GateDecision{}, err
	}

	dec := types.GateDecision{Allowed: true, IdentityID: binding.IdentityID}
	if rec, err := s.identities.Get(ctx, binding.IdentityID); err == nil {
		dec.DisplayName = rec.DisplayName
	}

	s.recordAudit(ctx, binding.IdentityID, cardID, types.ActionEntryAllow, now)
	s.notifyAsync(fmt.Sprintf("entry: %s (%s)", dec.DisplayName, dec.IdentityID))

	return dec, nil
}

// recordAudit persists the gate decision.  Errors are intentionally not
// returned — a failed audit write must not keep the door from answering.
func (s *GateService) recordAudit(ctx context.Context, identityID, cardID string, action types.AuditAction, at time.Time) {
	_ = s.audit.Append(ctx, store.AuditRecord{
		IdentityID: identityID,
		CardID:     cardID,
		Action:     action,
		CreatedAt:  at,
	})
}

func (s *GateService) notifyAsync(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		s.notifier.Notify(ctx, text)
	}()
}

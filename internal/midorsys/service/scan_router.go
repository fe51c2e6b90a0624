package service

import (
	"context"
	"strings"

	"github.com/s112213021-sketch/midorSys/internal/midorsys/types"
)

// ScanRouter dispatches one reader event to the enrollment state machine or
// the gate authorizer.  An event carrying an identity with an active session
// is an enrollment scan; everything else is a gate scan.
type ScanRouter struct {
	enrollment *EnrollmentService
	gate       *GateService
}

func NewScanRouter(enrollment *EnrollmentService, gate *GateService) *ScanRouter {
	return &ScanRouter{enrollment: enrollment, gate: gate}
}

func (r *ScanRouter) Route(ctx context.Context, req types.ScanRequest) (types.ScanOutcome, error) {
	cardID := strings.TrimSpace(req.CardID)
	if cardID == "" {
		// Unroutable events are rejected, never audited.
		return types.ScanOutcome{}, ErrInvalidCardID
	}

	identityID := strings.TrimSpace(req.IdentityID)
	if identityID != "" {
		active, err := r.enrollment.HasActiveSession(ctx, identityID)
		if err != nil {
			return types.ScanOutcome{}, err
		}
		if active {
			outcome, err := r.enrollment.SubmitScan(ctx, identityID, cardID)
			if err != nil {
				return types.ScanOutcome{}, err
			}
			return types.ScanOutcome{Status: string(outcome), IdentityID: identityID}, nil
		}
	}

	dec, err := r.gate.Authorize(ctx, cardID)
	if err != nil {
		return types.ScanOutcome{}, err
	}
	if !dec.Allowed {
		return types.ScanOutcome{Status: types.StatusEntryDeny}, nil
	}
	return types.ScanOutcome{
		Status:      types.StatusEntryAllow,
		IdentityID:  dec.IdentityID,
		DisplayName: dec.DisplayName,
	}, nil
}

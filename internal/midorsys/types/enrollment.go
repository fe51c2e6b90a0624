package types

// SessionState is the position of one identity's enrollment session in the
// two-scan state machine.  A missing session row means no enrollment is in
// progress ("none" in status projections).
type SessionState string

const (
	StateAwaitingFirstScan   SessionState = "awaiting_first_scan"
	StateAwaitingConfirmScan SessionState = "awaiting_confirm_scan"
)

// EnrollOutcome is the result of an enrollment scan that was accepted by the
// state machine.  MismatchRetry is an expected retry signal, not an error:
// the session stays open and the member simply starts the pairing over.
type EnrollOutcome string

const (
	OutcomeFirstScanAccepted EnrollOutcome = "first_scan_ok"
	OutcomeBound             EnrollOutcome = "bound"
	OutcomeMismatchRetry     EnrollOutcome = "mismatch_retry"
)

// AuditAction enumerates the verbs recorded in the audit log.
type AuditAction string

const (
	ActionScanFirst    AuditAction = "SCAN_FIRST"
	ActionScanConfirm  AuditAction = "SCAN_CONFIRM"
	ActionBind         AuditAction = "BIND"
	ActionBindMismatch AuditAction = "BIND_MISMATCH"
	ActionEntryAllow   AuditAction = "ENTRY_ALLOW"
	ActionEntryDeny    AuditAction = "ENTRY_DENY"
)

// EnrollmentStatus is the read-only projection served to polling UIs.
type EnrollmentStatus struct {
	State     string `json:"state"` // "none" or a SessionState value
	Bound     bool   `json:"bound"`
	ExpiresAt string `json:"expires_at,omitempty"` // RFC3339, only while a session is active
}

package types

type ScanRequest struct {
	CardID      string `json:"card_id"`
	IdentityID  string `json:"identity_id,omitempty"`
	RequestedAt string `json:"requested_at,omitempty"` // optional reader timestamp
}

type ScanResponse struct {
	OK          bool   `json:"ok"`
	Status      string `json:"status"`
	IdentityID  string `json:"identity_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	ServerTime  string `json:"server_time"`
}

// GateDecision is the gate authorizer's answer for a single card presentation.
// A deny carries no identity — unknown cards are a normal outcome.
type GateDecision struct {
	Allowed     bool
	IdentityID  string
	DisplayName string
}

// ScanOutcome is the router-level result of one reader event, covering both
// the gate and enrollment paths.  Status holds either "entry_allow" /
// "entry_deny" or an EnrollOutcome value.
type ScanOutcome struct {
	Status      string
	IdentityID  string
	DisplayName string
}

const (
	StatusEntryAllow = "entry_allow"
	StatusEntryDeny  = "entry_deny"
)

type RegisterRequest struct {
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name"`
}

type EnrollStartRequest struct {
	IdentityID string `json:"identity_id"`
}

type EnrollScanRequest struct {
	IdentityID string `json:"identity_id"`
	CardID     string `json:"card_id"`
}

type EnrollCancelRequest struct {
	IdentityID string `json:"identity_id"`
}

type StatusResponse struct {
	OK         bool   `json:"ok"`
	Status     string `json:"status,omitempty"`
	IdentityID string `json:"identity_id,omitempty"`
	ServerTime string `json:"server_time"`
}

package types

import "fmt"

// RiskLevel classifies a governance action for approval routing and lock
// requirements. Higher risk levels require stricter quality gates: HIGH-risk
// decision packets must carry red-team analysis before execution.
type RiskLevel string

const (
	// RiskLow covers routine actions with no treasury or protocol impact.
	RiskLow RiskLevel = "LOW"
	// RiskMid covers actions with bounded, reversible impact.
	RiskMid RiskLevel = "MID"
	// RiskHigh covers irreversible or treasury-affecting actions.
	RiskHigh RiskLevel = "HIGH"
	// RiskUnknown is the initial classification before triage resolves it.
	RiskUnknown RiskLevel = "UNKNOWN"
)

// Valid reports whether the risk level is one of the defined classifications.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMid, RiskHigh, RiskUnknown:
		return true
	}
	return false
}

// Resolved reports whether triage has assigned a concrete risk level.
func (r RiskLevel) Resolved() bool {
	return r.Valid() && r != RiskUnknown
}

// RequiresLock reports whether an action at this risk level must be locked
// through the safe-autonomy lock service before execution.
func (r RiskLevel) RequiresLock() bool {
	return r == RiskHigh
}

// RequiresApproval reports whether an action at this risk level must pass the
// approval stage before execution.
func (r RiskLevel) RequiresApproval() bool {
	return r == RiskMid || r == RiskHigh
}

// ParseRiskLevel converts a string to a RiskLevel, returning an error for
// unrecognized values.
func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(s)
	if !r.Valid() {
		return RiskUnknown, fmt.Errorf("invalid risk level: %q", s)
	}
	return r, nil
}

package domain

import "time"

// Actions a decision can take, in increasing order of friction.
const (
	ActionAllow     = "allow"
	ActionMonitor   = "monitor"
	ActionChallenge = "challenge"
	ActionDeny      = "deny"
)

// Challenge modes carried by ActionChallenge decisions.
const (
	ChallengeVerifyMFA = "verify_mfa"
	ChallengeEnrollMFA = "enroll_mfa"
)

// SessionRestrictions bound the session a decision permits.
// A zero MaxDuration means the caller's configured default applies.
type SessionRestrictions struct {
	MaxDuration       time.Duration
	RequireMFA        bool
	Monitored         bool
	AllowedOperations []string
}

// Decision is the outcome of evaluating policy against a risk assessment.
type Decision struct {
	Action       string
	Challenge    string
	Reasoning    []string
	Restrictions SessionRestrictions
	AssessmentID string
	DecidedAt    time.Time
}

// Allowed reports whether the decision permits creating a session.
func (d Decision) Allowed() bool {
	return d.Action != ActionDeny
}

// TenantPolicy is a tenant-scoped Rego module overriding the default decision policy.
type TenantPolicy struct {
	ID        string
	TenantID  string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}

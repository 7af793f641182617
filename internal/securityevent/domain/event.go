package domain

import "time"

// Severity classifies how alarming a security event is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event types recorded by the engine. Free-form types are allowed; these cover
// the paths the core writes itself.
const (
	TypeLogin             = "login"
	TypeLoginDenied       = "login_denied"
	TypeLoginChallenged   = "login_challenged"
	TypeDeviceTrustChange = "device_trust_change"
	TypeSettingChange     = "setting_change"
	TypeMFAFailure        = "mfa_failure"
	TypeSessionRevoked    = "session_revoked"
	TypeAlert             = "alert"
)

// SecurityEvent is an immutable, append-only audit record. Rows are never
// updated or deleted by normal operation.
type SecurityEvent struct {
	ID           string
	UserID       string
	Type         string
	Description  string
	Severity     Severity
	IPAddress    string
	UserAgent    string
	Location     string
	RiskScore    float64
	ConnectionID string // optional related OAuth connection id; empty when none
	CreatedAt    time.Time
}

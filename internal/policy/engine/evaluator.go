package engine

import (
	"context"

	"sso-portal/backend/internal/policy/domain"
	riskdomain "sso-portal/backend/internal/risk/domain"
)

// Input carries everything a decision is made from. All fields are captured
// before evaluation starts; nothing is re-read mid-decision.
type Input struct {
	Assessment    *riskdomain.Assessment
	TenantID      string
	DeviceTrusted bool
	MFAEnrolled   bool
}

// Evaluator turns a risk assessment into an access decision.
type Evaluator interface {
	// Decide evaluates policy for the assessment and records one security
	// event for the decision. On any internal failure the returned decision
	// is a deny.
	Decide(ctx context.Context, in Input) (domain.Decision, error)
}

package repository

import (
	"context"

	"sso-portal/backend/internal/risk/domain"
)

// AssessmentRepository defines persistence for risk assessments. Assessments
// are write-once: there is no update.
type AssessmentRepository interface {
	Create(ctx context.Context, a *domain.Assessment) error
	// LatestByUser returns the assessment with the maximum creation timestamp
	// for the user, or nil when the user has none.
	LatestByUser(ctx context.Context, userID string) (*domain.Assessment, error)
	// ListByUser returns the limit most recent assessments, descending by
	// creation time, ties broken by insertion order. Unknown users yield an
	// empty list.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Assessment, error)
}

// ThresholdsRepository defines persistence for per-scope risk thresholds.
type ThresholdsRepository interface {
	// Get returns the thresholds for scope, or nil when no row exists yet.
	Get(ctx context.Context, scope string) (*domain.Thresholds, error)
	// Save upserts the full thresholds row for its scope.
	Save(ctx context.Context, t *domain.Thresholds) error
}

package repository

import (
	"context"

	"sso-portal/backend/internal/mfa/domain"
)

// Repository defines persistence for MFA enrollments, one per user.
type Repository interface {
	// Get returns the user's enrollment, or nil if none exists.
	Get(ctx context.Context, userID string) (*domain.Enrollment, error)
	// Upsert creates or replaces the user's enrollment.
	Upsert(ctx context.Context, e *domain.Enrollment) error
	// Delete removes the user's enrollment. Deleting a missing enrollment is
	// not an error.
	Delete(ctx context.Context, userID string) error
}

package repository

import (
	"context"
	"time"

	"sso-portal/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Lookups return (nil, nil) for
// missing sessions; errors are reserved for storage failures.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// UpdateExpiry moves the session's expiry to the given time.
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	// Deactivate marks the session inactive. Deactivating a missing or
	// already inactive session is not an error.
	Deactivate(ctx context.Context, id string) error
	// DeactivateAllByUser marks every active session of the user inactive
	// and returns how many were affected.
	DeactivateAllByUser(ctx context.Context, userID string) (int, error)
	// DeleteExpiredBefore hard-deletes sessions whose expiry is before the
	// cutoff and returns how many were removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
	// Stats aggregates the store at the given instant. startOfDay bounds the
	// created-today count.
	Stats(ctx context.Context, now, startOfDay time.Time) (domain.Stats, error)
}

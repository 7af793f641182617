package repository

import (
	"context"

	"sso-portal/backend/internal/securityevent/domain"
)

// Repository defines persistence for security events. The log is append-only:
// there is no update or delete.
type Repository interface {
	Create(ctx context.Context, e *domain.SecurityEvent) error
	// ListByUser returns up to limit events for the user, most recent first,
	// ties broken by insertion order. Unknown users yield an empty list.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.SecurityEvent, error)
	// ListByUserAndType is ListByUser filtered to one event type; used by the
	// risk engine to read a user's prior login locations.
	ListByUserAndType(ctx context.Context, userID, eventType string, limit int) ([]*domain.SecurityEvent, error)
}

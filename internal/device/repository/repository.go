package repository

import (
	"context"
	"time"

	"sso-portal/backend/internal/device/domain"
)

// Repository defines persistence for device fingerprints.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.DeviceFingerprint, error)
	GetByUserAndFingerprint(ctx context.Context, userID, fingerprint string) (*domain.DeviceFingerprint, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.DeviceFingerprint, error)
	// Upsert creates the device or, when (user, fingerprint) already exists,
	// updates last-seen and descriptive fields. Concurrent duplicate
	// registrations must degrade to a last-seen update, never a second row.
	Upsert(ctx context.Context, d *domain.DeviceFingerprint) (*domain.DeviceFingerprint, error)
	UpdateTrusted(ctx context.Context, id string, trusted bool) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	// Delete removes the row entirely; a deleted device that reconnects is new again.
	Delete(ctx context.Context, id string) error
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sso-portal/backend/internal/device/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a device repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const deviceColumns = `id, user_id, fingerprint, device_name, device_type, browser, os, trusted, first_seen_at, last_seen_at`

// GetByID returns the device for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.DeviceFingerprint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM device_fingerprints WHERE id = $1`, id)
	return scanDevice(row)
}

// GetByUserAndFingerprint returns the device for the given user and fingerprint, or nil if not found.
func (r *PostgresRepository) GetByUserAndFingerprint(ctx context.Context, userID, fingerprint string) (*domain.DeviceFingerprint, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM device_fingerprints WHERE user_id = $1 AND fingerprint = $2`,
		userID, fingerprint)
	return scanDevice(row)
}

// ListByUser returns all devices for the given user, most recently seen first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.DeviceFingerprint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM device_fingerprints WHERE user_id = $1 ORDER BY last_seen_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.DeviceFingerprint
	for rows.Next() {
		var d domain.DeviceFingerprint
		if err := rows.Scan(&d.ID, &d.UserID, &d.Fingerprint, &d.DeviceName, &d.DeviceType, &d.Browser, &d.OS, &d.Trusted, &d.FirstSeenAt, &d.LastSeenAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// Upsert inserts the device or bumps last-seen on the (user, fingerprint)
// uniqueness conflict. The trusted flag of an existing row is never changed here.
func (r *PostgresRepository) Upsert(ctx context.Context, d *domain.DeviceFingerprint) (*domain.DeviceFingerprint, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO device_fingerprints (`+deviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT uq_device_user_fingerprint DO UPDATE
		SET last_seen_at = EXCLUDED.last_seen_at,
		    device_name  = EXCLUDED.device_name,
		    device_type  = EXCLUDED.device_type,
		    browser      = EXCLUDED.browser,
		    os           = EXCLUDED.os
		RETURNING `+deviceColumns,
		d.ID, d.UserID, d.Fingerprint, d.DeviceName, d.DeviceType, d.Browser, d.OS, d.Trusted, d.FirstSeenAt, d.LastSeenAt)
	return scanDevice(row)
}

// UpdateTrusted sets the device's trusted flag for the given id.
func (r *PostgresRepository) UpdateTrusted(ctx context.Context, id string, trusted bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE device_fingerprints SET trusted = $2 WHERE id = $1`, id, trusted)
	return err
}

// UpdateLastSeen sets the device's last-seen timestamp for the given id.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE device_fingerprints SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

// Delete removes the device row entirely. Deleting a missing row is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM device_fingerprints WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*domain.DeviceFingerprint, error) {
	var d domain.DeviceFingerprint
	err := row.Scan(&d.ID, &d.UserID, &d.Fingerprint, &d.DeviceName, &d.DeviceType, &d.Browser, &d.OS, &d.Trusted, &d.FirstSeenAt, &d.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

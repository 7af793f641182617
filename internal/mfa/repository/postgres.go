package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"sso-portal/backend/internal/mfa/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an MFA enrollment repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*domain.Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, enabled, secret_enc, backup_codes, setup_at, updated_at
		FROM mfa_enrollments
		WHERE user_id = $1`, userID)
	var e domain.Enrollment
	var codes []byte
	var setupAt sql.NullTime
	if err := row.Scan(&e.UserID, &e.Enabled, &e.SecretEnc, &codes, &setupAt, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(codes) > 0 {
		if err := json.Unmarshal(codes, &e.BackupCodes); err != nil {
			return nil, err
		}
	}
	if setupAt.Valid {
		e.SetupAt = &setupAt.Time
	}
	return &e, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, e *domain.Enrollment) error {
	codes, err := json.Marshal(e.BackupCodes)
	if err != nil {
		return err
	}
	var setupAt sql.NullTime
	if e.SetupAt != nil {
		setupAt = sql.NullTime{Time: *e.SetupAt, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO mfa_enrollments (user_id, enabled, secret_enc, backup_codes, setup_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			secret_enc = EXCLUDED.secret_enc,
			backup_codes = EXCLUDED.backup_codes,
			setup_at = EXCLUDED.setup_at,
			updated_at = EXCLUDED.updated_at`,
		e.UserID, e.Enabled, e.SecretEnc, codes, setupAt, e.UpdatedAt)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_enrollments WHERE user_id = $1`, userID)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"sso-portal/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, token, ip_address, user_agent, active, allowed_operations, require_mfa, created_at, expires_at`

func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	ops, err := json.Marshal(s.AllowedOperations)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.Token, s.IPAddress, s.UserAgent, s.Active, ops, s.RequireMFA, s.CreatedAt, s.ExpiresAt)
	return err
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByToken returns the session for the token, or nil if not found.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token)
	return scanSession(row)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET expires_at = $2 WHERE id = $1`, id, expiresAt)
	return err
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET active = FALSE WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET active = FALSE
		WHERE user_id = $1 AND active = TRUE`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepository) Stats(ctx context.Context, now, startOfDay time.Time) (domain.Stats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE active AND expires_at >= $1),
			COUNT(*) FILTER (WHERE expires_at < $1),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM sessions`, now, startOfDay)
	var stats domain.Stats
	if err := row.Scan(&stats.Active, &stats.ExpiredRetained, &stats.CreatedToday); err != nil {
		return domain.Stats{}, err
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var ops []byte
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.IPAddress, &s.UserAgent, &s.Active, &ops, &s.RequireMFA, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(ops) > 0 {
		if err := json.Unmarshal(ops, &s.AllowedOperations); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

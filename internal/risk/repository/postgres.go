package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"sso-portal/backend/internal/risk/domain"
)

type PostgresAssessmentRepository struct {
	db *sql.DB
}

// NewPostgresAssessmentRepository returns an assessment repository over the given db.
func NewPostgresAssessmentRepository(db *sql.DB) *PostgresAssessmentRepository {
	return &PostgresAssessmentRepository{db: db}
}

const assessmentColumns = `id, user_id, request_id, ip_address, user_agent, country, city, vpn, tor, device_fingerprint, behavioral, score, level, factors, recommended_actions, created_at`

// Create persists the assessment. Assessments are immutable; there is no update.
func (r *PostgresAssessmentRepository) Create(ctx context.Context, a *domain.Assessment) error {
	behavioral, err := json.Marshal(a.Behavioral)
	if err != nil {
		return err
	}
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return err
	}
	actions, err := json.Marshal(a.RecommendedActions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (id, user_id, request_id, ip_address, user_agent, country, city, vpn, tor, device_fingerprint, behavioral, score, level, factors, recommended_actions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.UserID, a.RequestID, a.IPAddress, a.UserAgent,
		a.Location.Country, a.Location.City, a.Location.VPN, a.Location.Tor,
		a.DeviceFingerprint, behavioral, a.Score, string(a.Level), factors, actions, a.CreatedAt)
	return err
}

// LatestByUser returns the most recent assessment for the user, or nil when none exists.
func (r *PostgresAssessmentRepository) LatestByUser(ctx context.Context, userID string) (*domain.Assessment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assessmentColumns+` FROM risk_assessments
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, userID)
	a, err := scanAssessment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListByUser returns the limit most recent assessments for the user, newest first.
func (r *PostgresAssessmentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Assessment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assessmentColumns+` FROM risk_assessments
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*domain.Assessment, error) {
	var a domain.Assessment
	var level string
	var behavioral, factors, actions []byte
	err := row.Scan(&a.ID, &a.UserID, &a.RequestID, &a.IPAddress, &a.UserAgent,
		&a.Location.Country, &a.Location.City, &a.Location.VPN, &a.Location.Tor,
		&a.DeviceFingerprint, &behavioral, &a.Score, &level, &factors, &actions, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Level = domain.Level(level)
	if len(behavioral) > 0 {
		if err := json.Unmarshal(behavioral, &a.Behavioral); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(factors, &a.Factors); err != nil {
		return nil, err
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &a.RecommendedActions); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

type PostgresThresholdsRepository struct {
	db *sql.DB
}

// NewPostgresThresholdsRepository returns a thresholds repository over the given db.
func NewPostgresThresholdsRepository(db *sql.DB) *PostgresThresholdsRepository {
	return &PostgresThresholdsRepository{db: db}
}

// Get returns the thresholds row for scope, or nil when no row exists.
func (r *PostgresThresholdsRepository) Get(ctx context.Context, scope string) (*domain.Thresholds, error) {
	var t domain.Thresholds
	err := r.db.QueryRowContext(ctx, `
		SELECT scope, new_device_weight, vpn_weight, tor_weight, location_weight, behavior_weight, behavior_tolerance, low_boundary, medium_boundary, high_boundary, updated_at
		FROM risk_thresholds WHERE scope = $1`, scope).
		Scan(&t.Scope, &t.NewDeviceWeight, &t.VPNWeight, &t.TorWeight, &t.LocationWeight, &t.BehaviorWeight, &t.BehaviorTolerance, &t.LowBoundary, &t.MediumBoundary, &t.HighBoundary, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Save upserts the thresholds row for its scope.
func (r *PostgresThresholdsRepository) Save(ctx context.Context, t *domain.Thresholds) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO risk_thresholds (scope, new_device_weight, vpn_weight, tor_weight, location_weight, behavior_weight, behavior_tolerance, low_boundary, medium_boundary, high_boundary, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (scope) DO UPDATE SET
			new_device_weight = EXCLUDED.new_device_weight,
			vpn_weight = EXCLUDED.vpn_weight,
			tor_weight = EXCLUDED.tor_weight,
			location_weight = EXCLUDED.location_weight,
			behavior_weight = EXCLUDED.behavior_weight,
			behavior_tolerance = EXCLUDED.behavior_tolerance,
			low_boundary = EXCLUDED.low_boundary,
			medium_boundary = EXCLUDED.medium_boundary,
			high_boundary = EXCLUDED.high_boundary,
			updated_at = EXCLUDED.updated_at`,
		t.Scope, t.NewDeviceWeight, t.VPNWeight, t.TorWeight, t.LocationWeight, t.BehaviorWeight, t.BehaviorTolerance, t.LowBoundary, t.MediumBoundary, t.HighBoundary, t.UpdatedAt)
	return err
}

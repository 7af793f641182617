package repository

import (
	"context"
	"database/sql"

	"sso-portal/backend/internal/securityevent/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a security event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends the event. Events are immutable; there is no corresponding update.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.SecurityEvent) error {
	connID := sql.NullString{String: e.ConnectionID, Valid: e.ConnectionID != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO security_events (id, user_id, event_type, description, severity, ip_address, user_agent, location, risk_score, connection_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.UserID, e.Type, e.Description, string(e.Severity), e.IPAddress, e.UserAgent, e.Location, e.RiskScore, connID, e.CreatedAt)
	return err
}

// ListByUser returns up to limit events for the user, newest first (insertion order breaks ties).
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.SecurityEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, event_type, description, severity, ip_address, user_agent, location, risk_score, connection_id, created_at
		FROM security_events
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByUserAndType returns up to limit events of one type for the user, newest first.
func (r *PostgresRepository) ListByUserAndType(ctx context.Context, userID, eventType string, limit int) ([]*domain.SecurityEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, event_type, description, severity, ip_address, user_agent, location, risk_score, connection_id, created_at
		FROM security_events
		WHERE user_id = $1 AND event_type = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT $3`, userID, eventType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*domain.SecurityEvent, error) {
	var out []*domain.SecurityEvent
	for rows.Next() {
		var e domain.SecurityEvent
		var severity string
		var connID sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Description, &severity, &e.IPAddress, &e.UserAgent, &e.Location, &e.RiskScore, &connID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Severity = domain.Severity(severity)
		if connID.Valid {
			e.ConnectionID = connID.String
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"

	"sso-portal/backend/internal/policy/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant policy repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.TenantPolicy, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, rules, enabled, created_at
		FROM tenant_policies
		WHERE id = $1`, id)
	var p domain.TenantPolicy
	if err := row.Scan(&p.ID, &p.TenantID, &p.Rules, &p.Enabled, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.TenantPolicy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, rules, enabled, created_at
		FROM tenant_policies
		WHERE tenant_id = $1
		ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *PostgresRepository) GetEnabledByTenant(ctx context.Context, tenantID string) ([]*domain.TenantPolicy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, rules, enabled, created_at
		FROM tenant_policies
		WHERE tenant_id = $1 AND enabled = TRUE
		ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *PostgresRepository) Create(ctx context.Context, p *domain.TenantPolicy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenant_policies (id, tenant_id, rules, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.TenantID, p.Rules, p.Enabled, p.CreatedAt)
	return err
}

func (r *PostgresRepository) Update(ctx context.Context, p *domain.TenantPolicy) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tenant_policies
		SET rules = $2, enabled = $3
		WHERE id = $1`,
		p.ID, p.Rules, p.Enabled)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tenant_policies WHERE id = $1`, id)
	return err
}

func scanPolicies(rows *sql.Rows) ([]*domain.TenantPolicy, error) {
	var out []*domain.TenantPolicy
	for rows.Next() {
		var p domain.TenantPolicy
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Rules, &p.Enabled, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

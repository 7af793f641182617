package repository

import (
	"context"

	"sso-portal/backend/internal/policy/domain"
)

// Repository defines persistence for tenant policies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.TenantPolicy, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.TenantPolicy, error)
	GetEnabledByTenant(ctx context.Context, tenantID string) ([]*domain.TenantPolicy, error)
	Create(ctx context.Context, p *domain.TenantPolicy) error
	Update(ctx context.Context, p *domain.TenantPolicy) error
	Delete(ctx context.Context, id string) error
}

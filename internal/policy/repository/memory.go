package repository

import (
	"context"
	"sync"

	"sso-portal/backend/internal/policy/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
type MemoryRepository struct {
	mu       sync.RWMutex
	policies map[string]*domain.TenantPolicy
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{policies: make(map[string]*domain.TenantPolicy)}
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.TenantPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) ListByTenant(_ context.Context, tenantID string) ([]*domain.TenantPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.TenantPolicy
	for _, p := range r.policies {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) GetEnabledByTenant(_ context.Context, tenantID string) ([]*domain.TenantPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.TenantPolicy
	for _, p := range r.policies {
		if p.TenantID == tenantID && p.Enabled {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, p *domain.TenantPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.policies[p.ID] = &cp
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, p *domain.TenantPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.policies[p.ID] = &cp
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.policies, id)
	return nil
}

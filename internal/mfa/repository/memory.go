package repository

import (
	"context"
	"sync"

	"sso-portal/backend/internal/mfa/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
type MemoryRepository struct {
	mu          sync.RWMutex
	enrollments map[string]*domain.Enrollment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{enrollments: make(map[string]*domain.Enrollment)}
}

func (r *MemoryRepository) Get(_ context.Context, userID string) (*domain.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enrollments[userID]
	if !ok {
		return nil, nil
	}
	cp := *e
	cp.BackupCodes = append([]string(nil), e.BackupCodes...)
	return &cp, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, e *domain.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	cp.BackupCodes = append([]string(nil), e.BackupCodes...)
	r.enrollments[e.UserID] = &cp
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.enrollments, userID)
	return nil
}

package repository

import (
	"context"
	"sync"

	"sso-portal/backend/internal/securityevent/domain"
)

// MemoryRepository is an in-memory Repository for dev mode and tests. Safe for
// concurrent use; insertion order is preserved so timestamp ties break correctly.
type MemoryRepository struct {
	mu     sync.RWMutex
	events []*domain.SecurityEvent
}

// NewMemoryRepository returns an empty in-memory security event repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, e *domain.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e2 := *e
	r.events = append(r.events, &e2)
	return nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.SecurityEvent, error) {
	return r.list(userID, "", limit)
}

func (r *MemoryRepository) ListByUserAndType(ctx context.Context, userID, eventType string, limit int) ([]*domain.SecurityEvent, error) {
	return r.list(userID, eventType, limit)
}

func (r *MemoryRepository) list(userID, eventType string, limit int) ([]*domain.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.SecurityEvent
	// Walk newest-insertion-first; CreatedAt ordering follows because appends
	// happen in creation order.
	for i := len(r.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		e := r.events[i]
		if e.UserID != userID {
			continue
		}
		if eventType != "" && e.Type != eventType {
			continue
		}
		e2 := *e
		out = append(out, &e2)
	}
	return out, nil
}

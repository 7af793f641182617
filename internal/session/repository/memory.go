package repository

import (
	"context"
	"sync"
	"time"

	"sso-portal/backend/internal/session/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session // by id
	byToken  map[string]string          // token -> id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*domain.Session),
		byToken:  make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	r.byToken[s.Token] = s.ID
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byToken[token]
	if !ok {
		return nil, nil
	}
	cp := *r.sessions[id]
	return &cp, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.ExpiresAt = expiresAt
	}
	return nil
}

func (r *MemoryRepository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Active = false
	}
	return nil
}

func (r *MemoryRepository) DeactivateAllByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.Active {
			s.Active = false
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(r.sessions, id)
			delete(r.byToken, s.Token)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Stats(_ context.Context, now, startOfDay time.Time) (domain.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats domain.Stats
	for _, s := range r.sessions {
		if s.Active && !s.Expired(now) {
			stats.Active++
		}
		if s.Expired(now) {
			stats.ExpiredRetained++
		}
		if !s.CreatedAt.Before(startOfDay) {
			stats.CreatedToday++
		}
	}
	return stats, nil
}

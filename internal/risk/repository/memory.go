package repository

import (
	"context"
	"sync"

	"sso-portal/backend/internal/risk/domain"
)

// MemoryAssessmentRepository is an in-memory AssessmentRepository for dev mode
// and tests. Appends preserve insertion order so timestamp ties break correctly.
type MemoryAssessmentRepository struct {
	mu     sync.RWMutex
	byUser map[string][]*domain.Assessment
}

// NewMemoryAssessmentRepository returns an empty in-memory assessment repository.
func NewMemoryAssessmentRepository() *MemoryAssessmentRepository {
	return &MemoryAssessmentRepository{byUser: make(map[string][]*domain.Assessment)}
}

func (r *MemoryAssessmentRepository) Create(ctx context.Context, a *domain.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a2 := *a
	r.byUser[a.UserID] = append(r.byUser[a.UserID], &a2)
	return nil
}

func (r *MemoryAssessmentRepository) LatestByUser(ctx context.Context, userID string) (*domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byUser[userID]
	if len(list) == 0 {
		return nil, nil
	}
	// Appends happen in creation order, so the latest is the newest insertion
	// with the maximum timestamp.
	best := list[len(list)-1]
	for i := len(list) - 2; i >= 0; i-- {
		if list[i].CreatedAt.After(best.CreatedAt) {
			best = list[i]
		}
	}
	b := *best
	return &b, nil
}

func (r *MemoryAssessmentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byUser[userID]
	var out []*domain.Assessment
	for i := len(list) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		a := *list[i]
		out = append(out, &a)
	}
	return out, nil
}

// MemoryThresholdsRepository is an in-memory ThresholdsRepository.
type MemoryThresholdsRepository struct {
	mu      sync.RWMutex
	byScope map[string]*domain.Thresholds
}

// NewMemoryThresholdsRepository returns an empty in-memory thresholds repository.
func NewMemoryThresholdsRepository() *MemoryThresholdsRepository {
	return &MemoryThresholdsRepository{byScope: make(map[string]*domain.Thresholds)}
}

func (r *MemoryThresholdsRepository) Get(ctx context.Context, scope string) (*domain.Thresholds, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byScope[scope]
	if !ok {
		return nil, nil
	}
	t2 := *t
	return &t2, nil
}

func (r *MemoryThresholdsRepository) Save(ctx context.Context, t *domain.Thresholds) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t2 := *t
	r.byScope[t.Scope] = &t2
	return nil
}

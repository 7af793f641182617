package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"sso-portal/backend/internal/device/domain"
)

// MemoryRepository is an in-memory Repository for dev mode and tests. The
// single mutex gives the same (user, fingerprint) uniqueness guarantee the
// Postgres constraint does.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[string]*domain.DeviceFingerprint
}

// NewMemoryRepository returns an empty in-memory device repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.DeviceFingerprint)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.DeviceFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	d2 := *d
	return &d2, nil
}

func (r *MemoryRepository) GetByUserAndFingerprint(ctx context.Context, userID, fingerprint string) (*domain.DeviceFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d := r.findLocked(userID, fingerprint); d != nil {
		d2 := *d
		return &d2, nil
	}
	return nil, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.DeviceFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.DeviceFingerprint
	for _, d := range r.byID {
		if d.UserID == userID {
			d2 := *d
			out = append(out, &d2)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeenAt.After(out[j].LastSeenAt) })
	return out, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, d *domain.DeviceFingerprint) (*domain.DeviceFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.findLocked(d.UserID, d.Fingerprint); existing != nil {
		existing.LastSeenAt = d.LastSeenAt
		existing.DeviceName = d.DeviceName
		existing.DeviceType = d.DeviceType
		existing.Browser = d.Browser
		existing.OS = d.OS
		d2 := *existing
		return &d2, nil
	}
	d2 := *d
	r.byID[d2.ID] = &d2
	d3 := d2
	return &d3, nil
}

func (r *MemoryRepository) UpdateTrusted(ctx context.Context, id string, trusted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		d.Trusted = trusted
	}
	return nil
}

func (r *MemoryRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		d.LastSeenAt = at
	}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) findLocked(userID, fingerprint string) *domain.DeviceFingerprint {
	for _, d := range r.byID {
		if d.UserID == userID && d.Fingerprint == fingerprint {
			return d
		}
	}
	return nil
}

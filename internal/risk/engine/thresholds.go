package engine

import (
	"context"
	"time"

	"sso-portal/backend/internal/risk/domain"
	riskrepo "sso-portal/backend/internal/risk/repository"
)

// ThresholdManager resolves and updates per-scope risk thresholds. Unknown
// scopes fall back to the default scope's row, then to built-in defaults, so
// evaluation always has a complete threshold set.
type ThresholdManager struct {
	repo riskrepo.ThresholdsRepository
}

// NewThresholdManager returns a ThresholdManager over the given repository.
func NewThresholdManager(repo riskrepo.ThresholdsRepository) *ThresholdManager {
	return &ThresholdManager{repo: repo}
}

// Get returns the effective thresholds for scope. Never returns a nil value on
// success; missing rows resolve to defaults without writing anything.
func (m *ThresholdManager) Get(ctx context.Context, scope string) (domain.Thresholds, error) {
	if scope == "" {
		scope = domain.DefaultScope
	}
	t, err := m.repo.Get(ctx, scope)
	if err != nil {
		return domain.Thresholds{}, err
	}
	if t != nil {
		return *t, nil
	}
	if scope != domain.DefaultScope {
		t, err = m.repo.Get(ctx, domain.DefaultScope)
		if err != nil {
			return domain.Thresholds{}, err
		}
		if t != nil {
			fallback := *t
			fallback.Scope = scope
			return fallback, nil
		}
	}
	return domain.DefaultThresholds(scope), nil
}

// Update applies a partial patch to the scope's thresholds, creating the row
// from defaults on first write. Fields not named by the patch keep their
// current values. The boundary-order invariant is enforced before saving.
func (m *ThresholdManager) Update(ctx context.Context, scope string, patch domain.ThresholdsPatch) (domain.Thresholds, error) {
	current, err := m.Get(ctx, scope)
	if err != nil {
		return domain.Thresholds{}, err
	}
	next := patch.Apply(current)
	next.Scope = current.Scope
	next.UpdatedAt = time.Now().UTC()
	if err := next.Validate(); err != nil {
		return domain.Thresholds{}, err
	}
	if err := m.repo.Save(ctx, &next); err != nil {
		return domain.Thresholds{}, err
	}
	return next, nil
}

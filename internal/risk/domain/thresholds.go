package domain

import (
	"errors"
	"time"
)

// DefaultScope is the thresholds row used when no tenant-specific row exists.
const DefaultScope = "default"

// Thresholds are the tunable weights and level boundaries of the risk engine.
// One row per scope; partial updates change only named fields.
type Thresholds struct {
	Scope             string    `json:"scope"`
	NewDeviceWeight   float64   `json:"new_device_weight"`
	VPNWeight         float64   `json:"vpn_weight"`
	TorWeight         float64   `json:"tor_weight"`
	LocationWeight    float64   `json:"location_weight"`
	BehaviorWeight    float64   `json:"behavior_weight"`
	BehaviorTolerance float64   `json:"behavior_tolerance"`
	LowBoundary       float64   `json:"low_boundary"`
	MediumBoundary    float64   `json:"medium_boundary"`
	HighBoundary      float64   `json:"high_boundary"`
	UpdatedAt         time.Time `json:"updated_at"`
}

var (
	// ErrBoundaryOrder is returned when boundaries are not strictly increasing.
	ErrBoundaryOrder = errors.New("risk thresholds: boundaries must satisfy low < medium < high")
	ErrWeightRange   = errors.New("risk thresholds: weights must be in [0,1]")
	ErrBoundaryRange = errors.New("risk thresholds: boundaries must be in (0,1)")
)

// DefaultThresholds returns the engine defaults for the given scope. Tor is
// deliberately dominant: baseline plus the Tor weight lands in the high band
// on its own, and critical together with any other factor.
func DefaultThresholds(scope string) Thresholds {
	return Thresholds{
		Scope:             scope,
		NewDeviceWeight:   0.25,
		VPNWeight:         0.20,
		TorWeight:         0.60,
		LocationWeight:    0.15,
		BehaviorWeight:    0.15,
		BehaviorTolerance: 2.0,
		LowBoundary:       0.25,
		MediumBoundary:    0.50,
		HighBoundary:      0.75,
	}
}

// Validate checks the boundary monotonicity invariant and weight ranges.
func (t Thresholds) Validate() error {
	if !(t.LowBoundary < t.MediumBoundary && t.MediumBoundary < t.HighBoundary) {
		return ErrBoundaryOrder
	}
	for _, w := range []float64{t.NewDeviceWeight, t.VPNWeight, t.TorWeight, t.LocationWeight, t.BehaviorWeight} {
		if w < 0 || w > 1 {
			return ErrWeightRange
		}
	}
	if t.LowBoundary <= 0 || t.HighBoundary >= 1 {
		return ErrBoundaryRange
	}
	return nil
}

// LevelFor buckets a score against the boundaries. Monotonic by construction:
// score < low → low, < medium → medium, < high → high, else critical.
func (t Thresholds) LevelFor(score float64) Level {
	switch {
	case score < t.LowBoundary:
		return LevelLow
	case score < t.MediumBoundary:
		return LevelMedium
	case score < t.HighBoundary:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// ThresholdsPatch is a partial update; nil fields are left unchanged.
type ThresholdsPatch struct {
	NewDeviceWeight   *float64 `json:"new_device_weight,omitempty"`
	VPNWeight         *float64 `json:"vpn_weight,omitempty"`
	TorWeight         *float64 `json:"tor_weight,omitempty"`
	LocationWeight    *float64 `json:"location_weight,omitempty"`
	BehaviorWeight    *float64 `json:"behavior_weight,omitempty"`
	BehaviorTolerance *float64 `json:"behavior_tolerance,omitempty"`
	LowBoundary       *float64 `json:"low_boundary,omitempty"`
	MediumBoundary    *float64 `json:"medium_boundary,omitempty"`
	HighBoundary      *float64 `json:"high_boundary,omitempty"`
}

// Apply returns a copy of t with the patch's non-nil fields applied.
func (p ThresholdsPatch) Apply(t Thresholds) Thresholds {
	if p.NewDeviceWeight != nil {
		t.NewDeviceWeight = *p.NewDeviceWeight
	}
	if p.VPNWeight != nil {
		t.VPNWeight = *p.VPNWeight
	}
	if p.TorWeight != nil {
		t.TorWeight = *p.TorWeight
	}
	if p.LocationWeight != nil {
		t.LocationWeight = *p.LocationWeight
	}
	if p.BehaviorWeight != nil {
		t.BehaviorWeight = *p.BehaviorWeight
	}
	if p.BehaviorTolerance != nil {
		t.BehaviorTolerance = *p.BehaviorTolerance
	}
	if p.LowBoundary != nil {
		t.LowBoundary = *p.LowBoundary
	}
	if p.MediumBoundary != nil {
		t.MediumBoundary = *p.MediumBoundary
	}
	if p.HighBoundary != nil {
		t.HighBoundary = *p.HighBoundary
	}
	return t
}

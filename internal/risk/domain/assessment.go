package domain

import "time"

// Level is the categorical bucket of a risk score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Factor types contributed by the scoring algorithm.
const (
	FactorNewDevice       = "new_device"
	FactorVPN             = "vpn"
	FactorTor             = "tor"
	FactorLocationAnomaly = "location_anomaly"
	FactorBehavior        = "behavioral_deviation"
)

// Factor is one named, weighted contributor to a risk score.
type Factor struct {
	Type        string  `json:"type"`
	Weight      float64 `json:"weight"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// Location is the coarse client location supplied with an attempt.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
	VPN     bool   `json:"vpn"`
	Tor     bool   `json:"tor"`
}

// BehavioralSignals are optional numeric deviations from the user's baseline
// behavior, each in standard-deviation-like units. Nil means not measured.
// Unknown keys are rejected at the API boundary rather than carried through.
type BehavioralSignals struct {
	TypingCadenceDeviation *float64 `json:"typing_cadence_deviation,omitempty"`
	MouseVelocityDeviation *float64 `json:"mouse_velocity_deviation,omitempty"`
	LoginHourDeviation     *float64 `json:"login_hour_deviation,omitempty"`
}

// Max returns the largest provided deviation and whether any was provided.
func (b BehavioralSignals) Max() (float64, bool) {
	max, ok := 0.0, false
	for _, v := range []*float64{b.TypingCadenceDeviation, b.MouseVelocityDeviation, b.LoginHourDeviation} {
		if v == nil {
			continue
		}
		if !ok || *v > max {
			max = *v
		}
		ok = true
	}
	return max, ok
}

// Signals is the strongly-typed input of one evaluation.
type Signals struct {
	UserID      string
	RequestID   string
	IPAddress   string
	UserAgent   string
	Fingerprint string
	Location    Location
	Behavioral  BehavioralSignals
}

// Assessment is one scored snapshot of an authentication attempt. Immutable
// once persisted; retained for history and audit.
type Assessment struct {
	ID                 string
	UserID             string
	RequestID          string
	IPAddress          string
	UserAgent          string
	Location           Location
	DeviceFingerprint  string
	Behavioral         BehavioralSignals
	Score              float64
	Level              Level
	Factors            []Factor
	RecommendedActions []string
	CreatedAt          time.Time
}

// Package engine scores the risk of an authentication attempt from device,
// location, and behavioral signals.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sso-portal/backend/internal/risk/domain"
	riskrepo "sso-portal/backend/internal/risk/repository"
	eventdomain "sso-portal/backend/internal/securityevent/domain"
)

// Sentinel errors; handlers map them to HTTP status codes.
var (
	ErrInvalidUserID = errors.New("risk: user id is required")
	ErrNoAssessments = errors.New("risk: no assessments for user")
)

// baselineScore is the floor every attempt starts from; an attempt with no
// risk factors still carries nonzero residual risk.
const baselineScore = 0.05

// loginHistoryDepth is how many prior login events are consulted for the
// location anomaly check.
const loginHistoryDepth = 20

// DeviceChecker is the slice of the device trust store the engine consults.
type DeviceChecker interface {
	IsNewDevice(ctx context.Context, userID, fingerprint string) (bool, error)
}

// LoginHistory is the slice of the security event log the engine consults for
// the user's prior successful login locations.
type LoginHistory interface {
	ListByUserAndType(ctx context.Context, userID, eventType string, limit int) ([]*eventdomain.SecurityEvent, error)
}

// Engine computes risk assessments. All external consultations run under a
// bounded budget; a consultation failure fails the evaluation (the caller
// fails closed, it does not guess a score).
type Engine struct {
	assessments    riskrepo.AssessmentRepository
	thresholds     *ThresholdManager
	devices        DeviceChecker
	history        LoginHistory
	consultTimeout time.Duration
}

// NewEngine returns an Engine over the given collaborators.
func NewEngine(assessments riskrepo.AssessmentRepository, thresholds *ThresholdManager, devices DeviceChecker, history LoginHistory) *Engine {
	return &Engine{
		assessments:    assessments,
		thresholds:     thresholds,
		devices:        devices,
		history:        history,
		consultTimeout: 2 * time.Second,
	}
}

// Evaluate scores one authentication attempt and persists the assessment.
// Thresholds are fetched once per evaluation and passed through, never read
// from ambient state, so identical inputs against identical thresholds always
// yield identical scores and levels.
func (e *Engine) Evaluate(ctx context.Context, signals domain.Signals) (*domain.Assessment, error) {
	if strings.TrimSpace(signals.UserID) == "" {
		return nil, ErrInvalidUserID
	}

	consultCtx, cancel := context.WithTimeout(ctx, e.consultTimeout)
	defer cancel()

	thresholds, err := e.thresholds.Get(consultCtx, domain.DefaultScope)
	if err != nil {
		return nil, fmt.Errorf("risk: load thresholds: %w", err)
	}

	score := baselineScore
	var factors []domain.Factor
	addFactor := func(factorType string, weight float64, description string) {
		score += weight
		factors = append(factors, domain.Factor{
			Type:        factorType,
			Weight:      weight,
			Score:       weight,
			Description: description,
		})
	}

	if signals.Fingerprint != "" {
		isNew, err := e.devices.IsNewDevice(consultCtx, signals.UserID, signals.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("risk: device lookup: %w", err)
		}
		if isNew {
			addFactor(domain.FactorNewDevice, thresholds.NewDeviceWeight, "sign-in from a device not seen before for this account")
		}
	} else {
		// No fingerprint supplied at all is indistinguishable from a new device.
		addFactor(domain.FactorNewDevice, thresholds.NewDeviceWeight, "sign-in without a device fingerprint")
	}

	if signals.Location.VPN {
		addFactor(domain.FactorVPN, thresholds.VPNWeight, "connection appears to come through a VPN")
	}
	if signals.Location.Tor {
		addFactor(domain.FactorTor, thresholds.TorWeight, "connection appears to come from a Tor exit node")
	}

	anomalous, err := e.locationAnomalous(consultCtx, signals.UserID, signals.Location.Country)
	if err != nil {
		return nil, fmt.Errorf("risk: location history: %w", err)
	}
	if anomalous {
		addFactor(domain.FactorLocationAnomaly, thresholds.LocationWeight,
			fmt.Sprintf("sign-in from %s, not among recent sign-in locations", signals.Location.Country))
	}

	if deviation, ok := signals.Behavioral.Max(); ok && deviation > thresholds.BehaviorTolerance {
		addFactor(domain.FactorBehavior, thresholds.BehaviorWeight,
			fmt.Sprintf("behavioral signals deviate %.1fx beyond tolerance", deviation))
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	level := thresholds.LevelFor(score)

	requestID := signals.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	assessment := &domain.Assessment{
		ID:                 uuid.New().String(),
		UserID:             signals.UserID,
		RequestID:          requestID,
		IPAddress:          signals.IPAddress,
		UserAgent:          signals.UserAgent,
		Location:           signals.Location,
		DeviceFingerprint:  signals.Fingerprint,
		Behavioral:         signals.Behavioral,
		Score:              score,
		Level:              level,
		Factors:            factors,
		RecommendedActions: recommendedActions(level),
		CreatedAt:          time.Now().UTC(),
	}
	if err := e.assessments.Create(ctx, assessment); err != nil {
		return nil, fmt.Errorf("risk: persist assessment: %w", err)
	}
	return assessment, nil
}

// GetLatestRiskAssessment returns the user's most recent assessment.
// Fails with ErrNoAssessments when the user has none.
func (e *Engine) GetLatestRiskAssessment(ctx context.Context, userID string) (*domain.Assessment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}
	a, err := e.assessments.LatestByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNoAssessments
	}
	return a, nil
}

// GetRiskAssessmentHistory returns up to limit assessments, newest first.
// A user with no assessments yet gets an empty list, not an error.
func (e *Engine) GetRiskAssessmentHistory(ctx context.Context, userID string, limit int) ([]*domain.Assessment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}
	if limit <= 0 {
		limit = 50
	}
	return e.assessments.ListByUser(ctx, userID, limit)
}

// locationAnomalous reports whether country differs from every country seen in
// the user's recent successful logins. A user with no login history has no
// baseline, so nothing is anomalous yet.
func (e *Engine) locationAnomalous(ctx context.Context, userID, country string) (bool, error) {
	if country == "" {
		return false, nil
	}
	logins, err := e.history.ListByUserAndType(ctx, userID, eventdomain.TypeLogin, loginHistoryDepth)
	if err != nil {
		return false, err
	}
	if len(logins) == 0 {
		return false, nil
	}
	for _, ev := range logins {
		if strings.EqualFold(ev.Location, country) {
			return false, nil
		}
	}
	return true, nil
}

func recommendedActions(level domain.Level) []string {
	switch level {
	case domain.LevelCritical:
		return []string{"deny_login", "alert_operator"}
	case domain.LevelHigh:
		return []string{"require_mfa", "limit_session"}
	case domain.LevelMedium:
		return []string{"monitor_session"}
	default:
		return nil
	}
}

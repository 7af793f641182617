package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	deviceservice "sso-portal/backend/internal/device/service"

	devicerepo "sso-portal/backend/internal/device/repository"
	"sso-portal/backend/internal/risk/domain"
	riskrepo "sso-portal/backend/internal/risk/repository"
	"sso-portal/backend/internal/securityevent"
	eventdomain "sso-portal/backend/internal/securityevent/domain"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
)

type fixture struct {
	engine     *Engine
	devices    *deviceservice.TrustStore
	events     *eventrepo.MemoryRepository
	thresholds *ThresholdManager
}

func newFixture() *fixture {
	devices := deviceservice.NewTrustStore(devicerepo.NewMemoryRepository(), nil)
	events := eventrepo.NewMemoryRepository()
	thresholds := NewThresholdManager(riskrepo.NewMemoryThresholdsRepository())
	return &fixture{
		engine:     NewEngine(riskrepo.NewMemoryAssessmentRepository(), thresholds, devices, events),
		devices:    devices,
		events:     events,
		thresholds: thresholds,
	}
}

func (f *fixture) registerDevice(t *testing.T, userID, fp string) {
	t.Helper()
	if _, err := f.devices.Register(context.Background(), deviceservice.RegisterInput{UserID: userID, Fingerprint: fp}); err != nil {
		t.Fatalf("register device: %v", err)
	}
}

func (f *fixture) seedLogin(t *testing.T, userID, country string) {
	t.Helper()
	rec := securityevent.NewRecorder(f.events)
	if _, err := rec.Record(context.Background(), securityevent.Entry{
		UserID: userID, Type: eventdomain.TypeLogin, Location: country,
	}); err != nil {
		t.Fatalf("seed login event: %v", err)
	}
}

func baselineSignals(userID string) domain.Signals {
	return domain.Signals{
		UserID:      userID,
		IPAddress:   "203.0.113.9",
		UserAgent:   "Mozilla/5.0",
		Fingerprint: "fp-known",
		Location:    domain.Location{Country: "US", City: "Portland"},
	}
}

func TestEvaluate_KnownDeviceOrdinaryIPIsLow(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "user-1", "fp-known")
	f.seedLogin(t, "user-1", "US")

	a, err := f.engine.Evaluate(context.Background(), baselineSignals("user-1"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if a.Level != domain.LevelLow {
		t.Errorf("level = %q, want low (score %.2f, factors %+v)", a.Level, a.Score, a.Factors)
	}
	if len(a.Factors) != 0 {
		t.Errorf("factors = %+v, want none", a.Factors)
	}
	if a.Score < 0 || a.Score > 1 {
		t.Errorf("score %.3f outside [0,1]", a.Score)
	}
}

func TestEvaluate_TorAloneReachesHigh(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "user-1", "fp-known")
	f.seedLogin(t, "user-1", "US")

	signals := baselineSignals("user-1")
	signals.Location.Tor = true
	a, err := f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if a.Level != domain.LevelHigh && a.Level != domain.LevelCritical {
		t.Errorf("Tor alone: level = %q, want high or critical", a.Level)
	}
	if len(a.Factors) != 1 || a.Factors[0].Type != domain.FactorTor {
		t.Errorf("factors = %+v, want single tor factor", a.Factors)
	}
}

func TestEvaluate_NewDevicePlusTorIsCritical(t *testing.T) {
	f := newFixture()
	f.seedLogin(t, "user-1", "US")

	signals := baselineSignals("user-1")
	signals.Fingerprint = "fp-never-seen"
	signals.Location.Tor = true
	a, err := f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if a.Level != domain.LevelCritical {
		t.Errorf("new device + Tor: level = %q (score %.2f), want critical", a.Level, a.Score)
	}
}

func TestEvaluate_VPNAloneIsMedium(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "user-1", "fp-known")
	f.seedLogin(t, "user-1", "US")

	signals := baselineSignals("user-1")
	signals.Location.VPN = true
	a, err := f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if a.Level != domain.LevelMedium {
		t.Errorf("VPN alone: level = %q (score %.2f), want medium", a.Level, a.Score)
	}
}

func TestEvaluate_LocationAnomaly(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "user-1", "fp-known")
	f.seedLogin(t, "user-1", "US")
	f.seedLogin(t, "user-1", "CA")

	signals := baselineSignals("user-1")
	signals.Location.Country = "RU"
	a, err := f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	found := false
	for _, fac := range a.Factors {
		if fac.Type == domain.FactorLocationAnomaly {
			found = true
		}
	}
	if !found {
		t.Errorf("factors = %+v, want location anomaly for unseen country", a.Factors)
	}

	// Known country is not anomalous.
	signals.Location.Country = "CA"
	a, err = f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for _, fac := range a.Factors {
		if fac.Type == domain.FactorLocationAnomaly {
			t.Errorf("known country flagged anomalous: %+v", a.Factors)
		}
	}
}

func TestEvaluate_NoHistoryMeansNoAnomaly(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "user-1", "fp-known")

	a, err := f.engine.Evaluate(context.Background(), baselineSignals("user-1"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for _, fac := range a.Factors {
		if fac.Type == domain.FactorLocationAnomaly {
			t.Error("first ever login must not be a location anomaly")
		}
	}
}

func TestEvaluate_BehavioralDeviation(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "user-1", "fp-known")
	f.seedLogin(t, "user-1", "US")

	deviation := 3.5
	signals := baselineSignals("user-1")
	signals.Behavioral.TypingCadenceDeviation = &deviation
	a, err := f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	found := false
	for _, fac := range a.Factors {
		if fac.Type == domain.FactorBehavior {
			found = true
		}
	}
	if !found {
		t.Errorf("factors = %+v, want behavioral deviation beyond tolerance", a.Factors)
	}

	// Within tolerance contributes nothing.
	small := 0.5
	signals.Behavioral.TypingCadenceDeviation = &small
	a, _ = f.engine.Evaluate(context.Background(), signals)
	for _, fac := range a.Factors {
		if fac.Type == domain.FactorBehavior {
			t.Error("deviation within tolerance must not contribute")
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "user-1", "fp-known")
	f.seedLogin(t, "user-1", "US")

	signals := baselineSignals("user-1")
	signals.Location.VPN = true
	first, err := f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(first.Score-second.Score) > 1e-12 || first.Level != second.Level {
		t.Errorf("identical inputs scored differently: %.6f/%s vs %.6f/%s",
			first.Score, first.Level, second.Score, second.Level)
	}
	if len(first.Factors) != len(second.Factors) {
		t.Errorf("factor lists differ: %+v vs %+v", first.Factors, second.Factors)
	}
}

func TestEvaluate_ScoreClampedToOne(t *testing.T) {
	f := newFixture()
	w := 0.9
	if _, err := f.thresholds.Update(context.Background(), domain.DefaultScope, domain.ThresholdsPatch{
		TorWeight: &w, NewDeviceWeight: &w,
	}); err != nil {
		t.Fatalf("update thresholds: %v", err)
	}

	signals := baselineSignals("user-1")
	signals.Fingerprint = "fp-brand-new"
	signals.Location.Tor = true
	a, err := f.engine.Evaluate(context.Background(), signals)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if a.Score != 1 {
		t.Errorf("score = %.3f, want clamped to 1", a.Score)
	}
	if a.Level != domain.LevelCritical {
		t.Errorf("level = %q, want critical", a.Level)
	}
}

func TestEvaluate_InvalidUserID(t *testing.T) {
	f := newFixture()
	if _, err := f.engine.Evaluate(context.Background(), domain.Signals{UserID: "  "}); !errors.Is(err, ErrInvalidUserID) {
		t.Errorf("err = %v, want ErrInvalidUserID", err)
	}
}

func TestHistoryAndLatest(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "user-1", "fp-known")
	ctx := context.Background()

	if _, err := f.engine.GetLatestRiskAssessment(ctx, "user-1"); !errors.Is(err, ErrNoAssessments) {
		t.Errorf("latest with no assessments: err = %v, want ErrNoAssessments", err)
	}
	history, err := f.engine.GetRiskAssessmentHistory(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("history with no assessments should be empty, not error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d entries, want 0", len(history))
	}

	signals := baselineSignals("user-1")
	for i := 0; i < 3; i++ {
		if _, err := f.engine.Evaluate(ctx, signals); err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
	}
	tor := signals
	tor.Location.Tor = true
	last, err := f.engine.Evaluate(ctx, tor)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	latest, err := f.engine.GetLatestRiskAssessment(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetLatestRiskAssessment: %v", err)
	}
	if latest.ID != last.ID {
		t.Errorf("latest = %q, want most recent %q", latest.ID, last.ID)
	}

	history, err = f.engine.GetRiskAssessmentHistory(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("GetRiskAssessmentHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want limit 2", len(history))
	}
	if history[0].ID != last.ID {
		t.Errorf("history[0] = %q, want newest first", history[0].ID)
	}
}

func TestThresholds_PartialUpdateLeavesOthersIntact(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	before, err := f.thresholds.Get(ctx, domain.DefaultScope)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	newVPN := 0.33
	after, err := f.thresholds.Update(ctx, domain.DefaultScope, domain.ThresholdsPatch{VPNWeight: &newVPN})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if after.VPNWeight != 0.33 {
		t.Errorf("VPNWeight = %.2f, want 0.33", after.VPNWeight)
	}
	if after.TorWeight != before.TorWeight {
		t.Errorf("TorWeight changed: %.2f -> %.2f", before.TorWeight, after.TorWeight)
	}
	if after.LowBoundary != before.LowBoundary || after.MediumBoundary != before.MediumBoundary || after.HighBoundary != before.HighBoundary {
		t.Error("boundaries changed by unrelated patch")
	}

	// Round-trip through the repository too.
	reloaded, err := f.thresholds.Get(ctx, domain.DefaultScope)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if reloaded.VPNWeight != 0.33 || reloaded.TorWeight != before.TorWeight {
		t.Errorf("reloaded = %+v, want persisted partial update", reloaded)
	}
}

func TestThresholds_BoundaryOrderEnforced(t *testing.T) {
	f := newFixture()
	bad := 0.9
	if _, err := f.thresholds.Update(context.Background(), domain.DefaultScope, domain.ThresholdsPatch{LowBoundary: &bad}); !errors.Is(err, domain.ErrBoundaryOrder) {
		t.Errorf("err = %v, want ErrBoundaryOrder", err)
	}
}

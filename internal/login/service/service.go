// Package service threads a login attempt through risk scoring, policy
// decision and session issuance.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	deviceservice "sso-portal/backend/internal/device/service"
	policydomain "sso-portal/backend/internal/policy/domain"
	policyengine "sso-portal/backend/internal/policy/engine"
	riskdomain "sso-portal/backend/internal/risk/domain"
	riskengine "sso-portal/backend/internal/risk/engine"
	"sso-portal/backend/internal/securityevent"
	eventdomain "sso-portal/backend/internal/securityevent/domain"
	sessiondomain "sso-portal/backend/internal/session/domain"
	sessionservice "sso-portal/backend/internal/session/service"
)

var ErrInvalidAttempt = errors.New("login: user id is required")

const defaultAttemptTimeout = 5 * time.Second

// MFAChecker reports whether a user has an enabled MFA factor.
type MFAChecker interface {
	Enrolled(ctx context.Context, userID string) (bool, error)
}

// Attempt is one authentication attempt. Fields are captured once at the
// start; the pipeline never re-reads them.
type Attempt struct {
	UserID      string
	TenantID    string
	IPAddress   string
	UserAgent   string
	Fingerprint string
	DeviceName  string
	DeviceType  string
	Browser     string
	OS          string
	Location    riskdomain.Location
	Behavioral  riskdomain.BehavioralSignals
}

// Outcome is the result of an attempt. Session is nil when the decision
// denies access.
type Outcome struct {
	Assessment *riskdomain.Assessment
	Decision   policydomain.Decision
	Session    *sessiondomain.Session
}

// Service runs the risk, decision and session steps of a login.
type Service struct {
	risk      *riskengine.Engine
	policy    policyengine.Evaluator
	sessions  *sessionservice.Manager
	devices   *deviceservice.TrustStore
	mfa       MFAChecker
	events    *securityevent.Recorder
	timeout   time.Duration
	tracer    trace.Tracer
	decisions metric.Int64Counter
}

// NewService wires the login pipeline.
func NewService(
	risk *riskengine.Engine,
	policy policyengine.Evaluator,
	sessions *sessionservice.Manager,
	devices *deviceservice.TrustStore,
	mfa MFAChecker,
	events *securityevent.Recorder,
) *Service {
	decisions, err := otel.Meter("sso-portal/login").Int64Counter("login.decisions")
	if err != nil {
		log.Printf("login: decision counter unavailable: %v", err)
	}
	return &Service{
		risk:      risk,
		policy:    policy,
		sessions:  sessions,
		devices:   devices,
		mfa:       mfa,
		events:    events,
		timeout:   defaultAttemptTimeout,
		tracer:    otel.Tracer("sso-portal/login"),
		decisions: decisions,
	}
}

// Login scores the attempt, decides, and issues a session when permitted.
// Internal failures and timeouts fail closed: the outcome is a deny, never an
// unscored allow.
func (s *Service) Login(ctx context.Context, attempt Attempt) (*Outcome, error) {
	if attempt.UserID == "" {
		return nil, ErrInvalidAttempt
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "login.attempt")
	defer span.End()

	assessment, err := s.risk.Evaluate(ctx, riskdomain.Signals{
		UserID:      attempt.UserID,
		IPAddress:   attempt.IPAddress,
		UserAgent:   attempt.UserAgent,
		Fingerprint: attempt.Fingerprint,
		Location:    attempt.Location,
		Behavioral:  attempt.Behavioral,
	})
	if err != nil {
		if errors.Is(err, riskengine.ErrInvalidUserID) {
			return nil, ErrInvalidAttempt
		}
		log.Printf("login: risk evaluation failed for user %s: %v, denying", attempt.UserID, err)
		return s.failClosed(ctx, attempt, "risk evaluation unavailable"), nil
	}

	trusted, enrolled := s.deviceAndFactorState(ctx, attempt)

	decision, err := s.policy.Decide(ctx, policyengine.Input{
		Assessment:    assessment,
		TenantID:      attempt.TenantID,
		DeviceTrusted: trusted,
		MFAEnrolled:   enrolled,
	})
	if err != nil {
		log.Printf("login: decision for user %s could not be recorded: %v", attempt.UserID, err)
		s.count(ctx, decision.Action)
		return &Outcome{Assessment: assessment, Decision: decision}, nil
	}
	s.count(ctx, decision.Action)

	out := &Outcome{Assessment: assessment, Decision: decision}
	if !decision.Allowed() {
		return out, nil
	}

	// The device sighting is recorded only for admitted attempts so a denied
	// fingerprint stays new on its next attempt.
	if attempt.Fingerprint != "" {
		_, err := s.devices.Register(ctx, deviceservice.RegisterInput{
			UserID:      attempt.UserID,
			Fingerprint: attempt.Fingerprint,
			DeviceName:  attempt.DeviceName,
			DeviceType:  attempt.DeviceType,
			Browser:     attempt.Browser,
			OS:          attempt.OS,
		})
		if err != nil {
			log.Printf("login: device registration failed for user %s: %v, denying", attempt.UserID, err)
			return s.failClosed(ctx, attempt, "device registration unavailable"), nil
		}
	}

	session, err := s.sessions.CreateSession(ctx, sessionservice.CreateInput{
		UserID:            attempt.UserID,
		IPAddress:         attempt.IPAddress,
		UserAgent:         attempt.UserAgent,
		TTL:               decision.Restrictions.MaxDuration,
		RequireMFA:        decision.Restrictions.RequireMFA,
		AllowedOperations: decision.Restrictions.AllowedOperations,
	})
	if err != nil {
		log.Printf("login: session creation failed for user %s: %v, denying", attempt.UserID, err)
		return s.failClosed(ctx, attempt, "session creation unavailable"), nil
	}
	out.Session = session
	return out, nil
}

// deviceAndFactorState reads the trust and enrollment inputs of the decision.
// Read failures degrade to the stricter value.
func (s *Service) deviceAndFactorState(ctx context.Context, attempt Attempt) (trusted, enrolled bool) {
	if attempt.Fingerprint != "" {
		d, err := s.devices.GetByFingerprint(ctx, attempt.UserID, attempt.Fingerprint)
		if err != nil {
			log.Printf("login: device lookup failed for user %s: %v", attempt.UserID, err)
		} else if d != nil {
			trusted = d.Trusted
		}
	}
	enrolled, err := s.mfa.Enrolled(ctx, attempt.UserID)
	if err != nil {
		log.Printf("login: mfa lookup failed for user %s: %v", attempt.UserID, err)
		enrolled = false
	}
	return trusted, enrolled
}

// failClosed produces a deny outcome for an attempt the pipeline could not
// fully process, and records the deny directly since the decision engine was
// never consulted.
func (s *Service) failClosed(ctx context.Context, attempt Attempt, reason string) *Outcome {
	if s.events != nil {
		_, _ = s.events.Record(ctx, securityevent.Entry{
			UserID:      attempt.UserID,
			Type:        eventdomain.TypeLoginDenied,
			Description: "login denied: " + reason,
			Severity:    eventdomain.SeverityCritical,
			IPAddress:   attempt.IPAddress,
			UserAgent:   attempt.UserAgent,
			Location:    attempt.Location.Country,
		})
	}
	s.count(ctx, policydomain.ActionDeny)
	return &Outcome{
		Decision: policydomain.Decision{
			Action:    policydomain.ActionDeny,
			Reasoning: []string{reason},
			DecidedAt: time.Now().UTC(),
		},
	}
}

func (s *Service) count(ctx context.Context, action string) {
	if s.decisions == nil {
		return
	}
	s.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"sso-portal/backend/internal/policy/domain"
	"sso-portal/backend/internal/policy/repository"
	riskdomain "sso-portal/backend/internal/risk/domain"
	"sso-portal/backend/internal/securityevent"
	eventdomain "sso-portal/backend/internal/securityevent/domain"
)

const defaultPolicyPackage = "sso.session_risk"

// Default Rego policy encoding the risk-to-action table. Tenants may replace
// it with their own modules in the same package.
const defaultRegoPolicy = `package sso.session_risk

default action = "deny"
default challenge = ""
default require_mfa = false
default monitored = false
default session_minutes = 0
default allowed_operations = ["*"]

action = "allow" if {
	input.risk.level == "low"
}

action = "monitor" if {
	input.risk.level == "medium"
}

action = "challenge" if {
	input.risk.level == "high"
}

monitored = true if {
	input.risk.level == "medium"
}

challenge = "verify_mfa" if {
	input.risk.level == "high"
	not input.device.trusted
}

challenge = "verify_mfa" if {
	input.risk.level == "high"
	input.device.trusted
	input.user.mfa_enrolled
}

challenge = "enroll_mfa" if {
	input.risk.level == "high"
	input.device.trusted
	not input.user.mfa_enrolled
}

require_mfa = true if {
	action == "challenge"
}

session_minutes = input.defaults.session_minutes if {
	action == "allow"
}

session_minutes = 60 if {
	action == "monitor"
}

session_minutes = 15 if {
	action == "challenge"
}

allowed_operations = ["read", "write", "mfa"] if {
	action == "monitor"
}

allowed_operations = ["read", "mfa"] if {
	action == "challenge"
}
`

// OPAEvaluator decides access using OPA Rego policies.
type OPAEvaluator struct {
	policyRepo repository.Repository
	events     *securityevent.Recorder
	sessionTTL time.Duration
}

// NewOPAEvaluator returns an OPA-based evaluator. sessionTTL is the default
// session lifetime passed to policies as input.defaults.session_minutes.
func NewOPAEvaluator(policyRepo repository.Repository, events *securityevent.Recorder, sessionTTL time.Duration) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo, events: events, sessionTTL: sessionTTL}
}

// HealthCheck verifies that the in-process Rego engine can compile and
// evaluate the default policy. Does not touch the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": defaultRegoPolicy})
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	q := rego.New(
		rego.Query("data."+defaultPolicyPackage+".action"),
		rego.Compiler(compiler),
		rego.Input(e.buildInput(&riskdomain.Assessment{Level: riskdomain.LevelLow}, false, false)),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// Decide evaluates policy for the assessment, records one security event for
// the outcome, and returns the decision. Evaluation failures produce a deny.
// A score outside [0,1] is an upstream invariant breach and panics.
func (e *OPAEvaluator) Decide(ctx context.Context, in Input) (domain.Decision, error) {
	a := in.Assessment
	if a == nil {
		panic("policy: decide called without assessment")
	}
	if a.Score < 0 || a.Score > 1 {
		panic(fmt.Sprintf("policy: risk score %f outside [0,1]", a.Score))
	}

	policies := e.loadPolicies(ctx, in.TenantID)
	decision, evalErr := e.evaluatePolicies(ctx, policies, e.buildInput(a, in.DeviceTrusted, in.MFAEnrolled))
	if evalErr != nil {
		log.Printf("policy: evaluation failed for user %s: %v, denying", a.UserID, evalErr)
		decision = domain.Decision{
			Action:    domain.ActionDeny,
			Reasoning: []string{"policy evaluation failed"},
		}
	} else {
		decision.Reasoning = reasoning(a, decision)
	}
	decision.AssessmentID = a.ID
	decision.DecidedAt = time.Now().UTC()

	if err := e.recordDecision(ctx, a, decision); err != nil {
		return domain.Decision{
			Action:       domain.ActionDeny,
			Reasoning:    []string{"decision could not be recorded"},
			AssessmentID: a.ID,
			DecidedAt:    decision.DecidedAt,
		}, fmt.Errorf("record decision: %w", err)
	}
	return decision, nil
}

func (e *OPAEvaluator) loadPolicies(ctx context.Context, tenantID string) []string {
	var policies []string
	if e.policyRepo != nil && tenantID != "" {
		enabled, err := e.policyRepo.GetEnabledByTenant(ctx, tenantID)
		if err != nil {
			log.Printf("policy: failed to load policies for tenant %s: %v", tenantID, err)
		} else {
			for _, p := range enabled {
				if p.Enabled && p.Rules != "" {
					policies = append(policies, p.Rules)
				}
			}
		}
	}
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}
	return policies
}

func (e *OPAEvaluator) buildInput(a *riskdomain.Assessment, deviceTrusted, mfaEnrolled bool) map[string]interface{} {
	factors := make([]interface{}, 0, len(a.Factors))
	for _, f := range a.Factors {
		factors = append(factors, map[string]interface{}{
			"type":   f.Type,
			"weight": f.Weight,
		})
	}
	return map[string]interface{}{
		"risk": map[string]interface{}{
			"score":   a.Score,
			"level":   string(a.Level),
			"factors": factors,
		},
		"device": map[string]interface{}{
			"fingerprint": a.DeviceFingerprint,
			"trusted":     deviceTrusted,
		},
		"user": map[string]interface{}{
			"id":           a.UserID,
			"mfa_enrolled": mfaEnrolled,
		},
		"defaults": map[string]interface{}{
			"session_minutes": int(e.sessionTTL.Minutes()),
		},
	}
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (domain.Decision, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("compile policies: %w", err)
	}

	action, err := e.queryString(ctx, compiler, input, "action")
	if err != nil {
		return domain.Decision{}, err
	}
	switch action {
	case domain.ActionAllow, domain.ActionMonitor, domain.ActionChallenge, domain.ActionDeny:
	default:
		return domain.Decision{}, fmt.Errorf("policy produced unknown action %q", action)
	}

	out := domain.Decision{Action: action}
	if out.Challenge, err = e.queryString(ctx, compiler, input, "challenge"); err != nil {
		return domain.Decision{}, err
	}
	if out.Restrictions.RequireMFA, err = e.queryBool(ctx, compiler, input, "require_mfa"); err != nil {
		return domain.Decision{}, err
	}
	if out.Restrictions.Monitored, err = e.queryBool(ctx, compiler, input, "monitored"); err != nil {
		return domain.Decision{}, err
	}
	minutes, err := e.queryInt(ctx, compiler, input, "session_minutes")
	if err != nil {
		return domain.Decision{}, err
	}
	if minutes > 0 {
		out.Restrictions.MaxDuration = time.Duration(minutes) * time.Minute
	}
	if out.Restrictions.AllowedOperations, err = e.queryStrings(ctx, compiler, input, "allowed_operations"); err != nil {
		return domain.Decision{}, err
	}
	return out, nil
}

func (e *OPAEvaluator) queryValue(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) (interface{}, error) {
	q := rego.New(
		rego.Query("data."+defaultPolicyPackage+"."+name),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("eval %s: %w", name, err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, fmt.Errorf("query %s returned no result", name)
	}
	return rs[0].Expressions[0].Value, nil
}

func (e *OPAEvaluator) queryString(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) (string, error) {
	v, err := e.queryValue(ctx, compiler, input, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("query %s: expected string, got %T", name, v)
	}
	return s, nil
}

func (e *OPAEvaluator) queryBool(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) (bool, error) {
	v, err := e.queryValue(ctx, compiler, input, name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("query %s: expected bool, got %T", name, v)
	}
	return b, nil
}

func (e *OPAEvaluator) queryInt(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) (int, error) {
	v, err := e.queryValue(ctx, compiler, input, name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("query %s: %w", name, err)
		}
		return int(i), nil
	case float64:
		return int(n), nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("query %s: expected number, got %T", name, v)
	}
}

func (e *OPAEvaluator) queryStrings(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) ([]string, error) {
	v, err := e.queryValue(ctx, compiler, input, name)
	if err != nil {
		return nil, err
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("query %s: expected array, got %T", name, v)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("query %s: expected string element, got %T", name, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// reasoning builds the ordered explanation for a decision: the risk bucket
// first, then each contributing factor in scoring order, then the outcome.
func reasoning(a *riskdomain.Assessment, d domain.Decision) []string {
	out := []string{fmt.Sprintf("risk level %s (score %.2f)", a.Level, a.Score)}
	for _, f := range a.Factors {
		out = append(out, f.Description)
	}
	switch d.Action {
	case domain.ActionAllow:
		out = append(out, "access allowed")
	case domain.ActionMonitor:
		out = append(out, "session created with monitoring")
	case domain.ActionChallenge:
		if d.Challenge == domain.ChallengeEnrollMFA {
			out = append(out, "mfa enrollment required before access")
		} else {
			out = append(out, "mfa verification required")
		}
	case domain.ActionDeny:
		out = append(out, "access denied")
	}
	return out
}

func (e *OPAEvaluator) recordDecision(ctx context.Context, a *riskdomain.Assessment, d domain.Decision) error {
	if e.events == nil {
		return nil
	}
	eventType := eventdomain.TypeLogin
	severity := eventdomain.SeverityLow
	switch d.Action {
	case domain.ActionMonitor:
		severity = eventdomain.SeverityMedium
	case domain.ActionChallenge:
		eventType = eventdomain.TypeLoginChallenged
		severity = eventdomain.SeverityHigh
	case domain.ActionDeny:
		eventType = eventdomain.TypeLoginDenied
		severity = eventdomain.SeverityCritical
	}
	_, err := e.events.Record(ctx, securityevent.Entry{
		UserID:      a.UserID,
		Type:        eventType,
		Description: fmt.Sprintf("login decision: %s", d.Action),
		Severity:    severity,
		IPAddress:   a.IPAddress,
		UserAgent:   a.UserAgent,
		Location:    a.Location.Country,
		RiskScore:   a.Score,
	})
	return err
}

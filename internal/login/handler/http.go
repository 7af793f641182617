// Package handler exposes the login pipeline over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"sso-portal/backend/internal/login/service"
	riskdomain "sso-portal/backend/internal/risk/domain"
)

// Handlers provides the HTTP handler for authentication attempts.
type Handlers struct {
	logins *service.Service
}

func NewHandlers(logins *service.Service) *Handlers {
	return &Handlers{logins: logins}
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.login).Methods("POST")
}

type loginRequest struct {
	UserID      string                       `json:"user_id"`
	TenantID    string                       `json:"tenant_id"`
	Fingerprint string                       `json:"fingerprint"`
	DeviceName  string                       `json:"device_name"`
	DeviceType  string                       `json:"device_type"`
	Browser     string                       `json:"browser"`
	OS          string                       `json:"os"`
	Location    riskdomain.Location          `json:"location"`
	Behavioral  riskdomain.BehavioralSignals `json:"behavioral"`
}

type loginResponse struct {
	Action       string    `json:"action"`
	Challenge    string    `json:"challenge,omitempty"`
	Reasoning    []string  `json:"reasoning"`
	RiskScore    float64   `json:"risk_score"`
	RiskLevel    string    `json:"risk_level"`
	Token        string    `json:"token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
	RequireMFA   bool      `json:"require_mfa,omitempty"`
	AllowedOps   []string  `json:"allowed_operations,omitempty"`
	AssessmentID string    `json:"assessment_id,omitempty"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	// Unknown keys, including misspelled behavioral signal names, are
	// rejected rather than silently dropped.
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req loginRequest
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	out, err := h.logins.Login(r.Context(), service.Attempt{
		UserID:      req.UserID,
		TenantID:    req.TenantID,
		IPAddress:   clientIP(r),
		UserAgent:   r.UserAgent(),
		Fingerprint: req.Fingerprint,
		DeviceName:  req.DeviceName,
		DeviceType:  req.DeviceType,
		Browser:     req.Browser,
		OS:          req.OS,
		Location:    req.Location,
		Behavioral:  req.Behavioral,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidAttempt) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	resp := loginResponse{
		Action:    out.Decision.Action,
		Challenge: out.Decision.Challenge,
		Reasoning: out.Decision.Reasoning,
	}
	if out.Assessment != nil {
		resp.RiskScore = out.Assessment.Score
		resp.RiskLevel = string(out.Assessment.Level)
		resp.AssessmentID = out.Assessment.ID
	}
	status := http.StatusOK
	if out.Session != nil {
		resp.Token = out.Session.Token
		resp.ExpiresAt = out.Session.ExpiresAt
		resp.RequireMFA = out.Session.RequireMFA
		resp.AllowedOps = out.Session.AllowedOperations
	} else {
		status = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// clientIP takes the last X-Forwarded-For hop, the one appended by the proxy
// in front of this service. Earlier entries are client-supplied and spoofable.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
			return ip
		}
	}
	return r.RemoteAddr
}

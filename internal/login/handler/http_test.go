package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	devicerepo "sso-portal/backend/internal/device/repository"
	deviceservice "sso-portal/backend/internal/device/service"
	"sso-portal/backend/internal/login/service"
	policyengine "sso-portal/backend/internal/policy/engine"
	policyrepo "sso-portal/backend/internal/policy/repository"
	riskengine "sso-portal/backend/internal/risk/engine"
	riskrepo "sso-portal/backend/internal/risk/repository"
	"sso-portal/backend/internal/securityevent"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
	sessionrepo "sso-portal/backend/internal/session/repository"
	sessionservice "sso-portal/backend/internal/session/service"
)

type stubMFA struct{}

func (stubMFA) Enrolled(ctx context.Context, userID string) (bool, error) { return false, nil }

func newTestRouter() *mux.Router {
	events := eventrepo.NewMemoryRepository()
	recorder := securityevent.NewRecorder(events)
	devices := deviceservice.NewTrustStore(devicerepo.NewMemoryRepository(), nil)
	risk := riskengine.NewEngine(
		riskrepo.NewMemoryAssessmentRepository(),
		riskengine.NewThresholdManager(riskrepo.NewMemoryThresholdsRepository()),
		devices,
		events,
	)
	policy := policyengine.NewOPAEvaluator(policyrepo.NewMemoryRepository(), recorder, 24*time.Hour)
	sessions := sessionservice.NewManager(sessionrepo.NewMemoryRepository(), recorder, 24*time.Hour, 7*24*time.Hour)
	logins := service.NewService(risk, policy, sessions, devices, stubMFA{}, recorder)

	router := mux.NewRouter()
	NewHandlers(logins).RegisterRoutes(router)
	return router
}

func postLogin(router *mux.Router, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginRejectsUnknownFields(t *testing.T) {
	router := newTestRouter()
	for name, body := range map[string]string{
		"top-level":         `{"user_id": "user-1", "risk_override": 0}`,
		"behavioral signal": `{"user_id": "user-1", "behavioral": {"typing_cadence_deviatoin": 1.5}}`,
	} {
		rec := postLogin(router, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", name, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	router := newTestRouter()
	if rec := postLogin(router, `{"user_id":`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLoginIssuesSession(t *testing.T) {
	router := newTestRouter()
	rec := postLogin(router, `{
		"user_id": "user-1",
		"fingerprint": "fp-laptop",
		"location": {"country": "US", "city": "Portland"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		Action string `json:"action"`
		Token  string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Errorf("no token in %q response", resp.Action)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"no header", "", "192.0.2.1:1234"},
		{"single hop", "198.51.100.7", "198.51.100.7"},
		{"client-prepended chain", "6.6.6.6, 198.51.100.7", "198.51.100.7"},
		{"trailing space", "6.6.6.6,198.51.100.7 ", "198.51.100.7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/login", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := clientIP(req); got != tc.want {
				t.Errorf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

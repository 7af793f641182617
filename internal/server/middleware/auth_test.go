package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sso-portal/backend/internal/securityevent"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
	sessiondomain "sso-portal/backend/internal/session/domain"
	sessionrepo "sso-portal/backend/internal/session/repository"
	sessionservice "sso-portal/backend/internal/session/service"
)

func newTestManager(t *testing.T) *sessionservice.Manager {
	t.Helper()
	events := securityevent.NewRecorder(eventrepo.NewMemoryRepository())
	return sessionservice.NewManager(sessionrepo.NewMemoryRepository(), events, time.Hour, 24*time.Hour)
}

func echoUserHandler(t *testing.T, wantUserID string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := SessionFromContext(r.Context())
		if s == nil {
			t.Error("no session in request context")
			return
		}
		if s.UserID != wantUserID {
			t.Errorf("session user = %q, want %q", s.UserID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionAuthValidToken(t *testing.T) {
	manager := newTestManager(t)
	s, err := manager.CreateSession(context.Background(), sessionservice.CreateInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	handler := SessionAuth(manager)(echoUserHandler(t, "user-1"))
	req := httptest.NewRequest("GET", "/session", nil)
	req.Header.Set("Authorization", "Bearer "+s.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestSessionAuthMissingToken(t *testing.T) {
	manager := newTestManager(t)
	handler := SessionAuth(manager)(echoUserHandler(t, ""))

	for name, header := range map[string]string{
		"no header":    "",
		"wrong scheme": "Basic abc123",
		"bare bearer":  "Bearer ",
	} {
		req := httptest.NewRequest("GET", "/session", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", name, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestSessionAuthUnknownToken(t *testing.T) {
	manager := newTestManager(t)
	handler := SessionAuth(manager)(echoUserHandler(t, ""))

	req := httptest.NewRequest("GET", "/session", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Body.String(); got != "invalid session\n" {
		t.Errorf("body = %q, want %q", got, "invalid session\n")
	}
}

func TestSessionAuthExpiredToken(t *testing.T) {
	repo := sessionrepo.NewMemoryRepository()
	events := securityevent.NewRecorder(eventrepo.NewMemoryRepository())
	manager := sessionservice.NewManager(repo, events, time.Hour, 24*time.Hour)

	expired := &sessiondomain.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		Token:     "expired-token",
		Active:    true,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := repo.Create(context.Background(), expired); err != nil {
		t.Fatalf("Create: %v", err)
	}

	handler := SessionAuth(manager)(echoUserHandler(t, ""))
	req := httptest.NewRequest("GET", "/session", nil)
	req.Header.Set("Authorization", "Bearer "+expired.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Body.String(); got != "session expired\n" {
		t.Errorf("body = %q, want %q", got, "session expired\n")
	}
}

func TestSessionFromContextOutsideMiddleware(t *testing.T) {
	if s := SessionFromContext(context.Background()); s != nil {
		t.Errorf("session = %+v, want nil", s)
	}
}

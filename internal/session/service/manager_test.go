package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sso-portal/backend/internal/securityevent"
	eventdomain "sso-portal/backend/internal/securityevent/domain"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
	sessionrepo "sso-portal/backend/internal/session/repository"
)

const (
	testTTL       = 24 * time.Hour
	testRetention = 7 * 24 * time.Hour
)

func newTestManager() (*Manager, *eventrepo.MemoryRepository, *time.Time) {
	events := eventrepo.NewMemoryRepository()
	m := NewManager(sessionrepo.NewMemoryRepository(), securityevent.NewRecorder(events), testTTL, testRetention)
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, events, &now
}

func TestCreateSession(t *testing.T) {
	m, _, _ := newTestManager()
	s, err := m.CreateSession(context.Background(), CreateInput{UserID: "user-1", IPAddress: "203.0.113.9"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if !s.Active {
		t.Error("new session must be active")
	}
	if s.Token == "" || s.ID == "" {
		t.Errorf("session missing token or id: %+v", s)
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != testTTL {
		t.Errorf("lifetime = %v, want default %v", got, testTTL)
	}

	other, err := m.CreateSession(context.Background(), CreateInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if other.Token == s.Token {
		t.Error("tokens must be unique across sessions")
	}
}

func TestCreateSession_ExplicitTTLAndRestrictions(t *testing.T) {
	m, _, _ := newTestManager()
	s, err := m.CreateSession(context.Background(), CreateInput{
		UserID:            "user-1",
		TTL:               15 * time.Minute,
		RequireMFA:        true,
		AllowedOperations: []string{"read", "mfa"},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != 15*time.Minute {
		t.Errorf("lifetime = %v, want 15m", got)
	}
	if !s.RequireMFA {
		t.Error("RequireMFA not carried")
	}
	if s.OperationAllowed("write") {
		t.Error("write must not be allowed under a read/mfa restriction")
	}
	if !s.OperationAllowed("read") {
		t.Error("read must be allowed")
	}
}

func TestCreateSession_RequiresUser(t *testing.T) {
	m, _, _ := newTestManager()
	if _, err := m.CreateSession(context.Background(), CreateInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestGetSessionByToken_NotFoundVsExpired(t *testing.T) {
	m, _, now := newTestManager()
	ctx := context.Background()

	if _, err := m.GetSessionByToken(ctx, "no-such-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown token: err = %v, want ErrSessionNotFound", err)
	}

	s, err := m.CreateSession(ctx, CreateInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := m.GetSessionByToken(ctx, s.Token)
	if err != nil {
		t.Fatalf("GetSessionByToken: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("got session %q, want %q", got.ID, s.ID)
	}

	// Past expiry the same token reports expired, not missing.
	*now = now.Add(testTTL + time.Minute)
	if _, err := m.GetSessionByToken(ctx, s.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expired token: err = %v, want ErrSessionExpired", err)
	}

	// An invalidated session is gone, not expired.
	s2, _ := m.CreateSession(ctx, CreateInput{UserID: "user-1"})
	if err := m.InvalidateSession(ctx, s2.Token); err != nil {
		t.Fatalf("InvalidateSession: %v", err)
	}
	if _, err := m.GetSessionByToken(ctx, s2.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("invalidated token: err = %v, want ErrSessionNotFound", err)
	}
}

func TestRefreshSession_MovesForwardOnly(t *testing.T) {
	m, _, now := newTestManager()
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, CreateInput{UserID: "user-1"})

	// An immediate refresh never pulls expiry backwards.
	unchanged, err := m.RefreshSession(ctx, s.Token)
	if err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if !unchanged.ExpiresAt.Equal(s.ExpiresAt) {
		t.Errorf("expiry moved backwards: %v -> %v", s.ExpiresAt, unchanged.ExpiresAt)
	}

	*now = now.Add(2 * time.Hour)
	refreshed, err := m.RefreshSession(ctx, s.Token)
	if err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	want := now.UTC().Add(testTTL)
	if !refreshed.ExpiresAt.Equal(want) {
		t.Errorf("expiry = %v, want %v", refreshed.ExpiresAt, want)
	}

	*now = now.Add(2 * testTTL)
	if _, err := m.RefreshSession(ctx, s.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("refresh of expired session: err = %v, want ErrSessionExpired", err)
	}
}

func TestRefreshSession_KeepsRestrictedLifetime(t *testing.T) {
	m, _, now := newTestManager()
	ctx := context.Background()
	s, err := m.CreateSession(ctx, CreateInput{
		UserID:            "user-1",
		TTL:               15 * time.Minute,
		RequireMFA:        true,
		AllowedOperations: []string{"read", "mfa"},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Refresh renews the 15-minute window; it never widens it to the
	// standard duration.
	*now = now.Add(10 * time.Minute)
	refreshed, err := m.RefreshSession(ctx, s.Token)
	if err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	want := now.UTC().Add(15 * time.Minute)
	if !refreshed.ExpiresAt.Equal(want) {
		t.Errorf("expiry = %v, want %v (issued lifetime, not the standard TTL)", refreshed.ExpiresAt, want)
	}
	if refreshed.ExpiresAt.Sub(s.CreatedAt) >= testTTL {
		t.Errorf("refresh widened a restricted session to %v", refreshed.ExpiresAt.Sub(s.CreatedAt))
	}
}

func TestInvalidateSession_Idempotent(t *testing.T) {
	m, events, _ := newTestManager()
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, CreateInput{UserID: "user-1"})

	if err := m.InvalidateSession(ctx, s.Token); err != nil {
		t.Fatalf("InvalidateSession: %v", err)
	}
	if err := m.InvalidateSession(ctx, s.Token); err != nil {
		t.Errorf("second invalidate: %v, want no-op", err)
	}
	if err := m.InvalidateSession(ctx, "never-issued"); err != nil {
		t.Errorf("invalidate unknown token: %v, want no-op", err)
	}

	recorded, _ := events.ListByUserAndType(ctx, "user-1", eventdomain.TypeSessionRevoked, 10)
	if len(recorded) != 1 {
		t.Errorf("revocation events = %d, want 1 (no-ops must not log)", len(recorded))
	}
}

func TestInvalidateAllUserSessions(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := m.CreateSession(ctx, CreateInput{UserID: "user-1"}); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}
	other, _ := m.CreateSession(ctx, CreateInput{UserID: "user-2"})

	n, err := m.InvalidateAllUserSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("InvalidateAllUserSessions: %v", err)
	}
	if n != 3 {
		t.Errorf("invalidated = %d, want 3", n)
	}
	if _, err := m.GetSessionByToken(ctx, other.Token); err != nil {
		t.Errorf("other user's session affected: %v", err)
	}
	n, _ = m.InvalidateAllUserSessions(ctx, "user-1")
	if n != 0 {
		t.Errorf("second pass invalidated %d, want 0", n)
	}
}

func TestCleanupExpiredSessions_HonorsRetention(t *testing.T) {
	m, _, now := newTestManager()
	ctx := context.Background()
	s, _ := m.CreateSession(ctx, CreateInput{UserID: "user-1"})

	// Expired but inside the retention window: kept.
	*now = now.Add(testTTL + time.Hour)
	n, err := m.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if n != 0 {
		t.Errorf("removed %d inside retention window, want 0", n)
	}

	// Past the retention window: removed.
	*now = now.Add(testRetention)
	n, err = m.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d past retention, want 1", n)
	}
	if _, err := m.GetSessionByToken(ctx, s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("deleted session: err = %v, want ErrSessionNotFound", err)
	}
}

func TestGetSessionStats(t *testing.T) {
	m, _, now := newTestManager()
	ctx := context.Background()

	// Created yesterday, expired by the stats instant.
	if _, err := m.CreateSession(ctx, CreateInput{UserID: "user-1", TTL: time.Hour}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	*now = now.Add(26 * time.Hour) // next day, past both midnight and the 1h TTL

	if _, err := m.CreateSession(ctx, CreateInput{UserID: "user-1"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := m.CreateSession(ctx, CreateInput{UserID: "user-2"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	stats, err := m.GetSessionStats(ctx)
	if err != nil {
		t.Fatalf("GetSessionStats: %v", err)
	}
	if stats.Active != 2 {
		t.Errorf("Active = %d, want 2", stats.Active)
	}
	if stats.ExpiredRetained != 1 {
		t.Errorf("ExpiredRetained = %d, want 1", stats.ExpiredRetained)
	}
	if stats.CreatedToday != 2 {
		t.Errorf("CreatedToday = %d, want 2", stats.CreatedToday)
	}
}

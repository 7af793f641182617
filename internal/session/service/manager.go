package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"sso-portal/backend/internal/security"
	"sso-portal/backend/internal/securityevent"
	eventdomain "sso-portal/backend/internal/securityevent/domain"
	"sso-portal/backend/internal/session/domain"
	sessionrepo "sso-portal/backend/internal/session/repository"
)

var (
	ErrInvalidInput    = errors.New("session: invalid input")
	ErrSessionNotFound = errors.New("session: not found")
	ErrSessionExpired  = errors.New("session: expired")
)

// Manager drives the session lifecycle on top of a Repository.
type Manager struct {
	repo       sessionrepo.Repository
	events     *securityevent.Recorder
	defaultTTL time.Duration
	retention  time.Duration
	now        func() time.Time
}

// NewManager returns a session manager. defaultTTL is the lifetime of
// sessions created without an explicit duration; retention is how long
// expired sessions stay queryable before cleanup removes them.
func NewManager(repo sessionrepo.Repository, events *securityevent.Recorder, defaultTTL, retention time.Duration) *Manager {
	return &Manager{
		repo:       repo,
		events:     events,
		defaultTTL: defaultTTL,
		retention:  retention,
		now:        time.Now,
	}
}

// CreateInput carries the fields of a new session.
type CreateInput struct {
	UserID            string
	IPAddress         string
	UserAgent         string
	TTL               time.Duration
	RequireMFA        bool
	AllowedOperations []string
}

// CreateSession creates an active session with a fresh opaque token.
func (m *Manager) CreateSession(ctx context.Context, in CreateInput) (*domain.Session, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, ErrInvalidInput
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	token, err := security.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	s := &domain.Session{
		ID:                uuid.New().String(),
		UserID:            in.UserID,
		Token:             token,
		IPAddress:         in.IPAddress,
		UserAgent:         in.UserAgent,
		Active:            true,
		RequireMFA:        in.RequireMFA,
		AllowedOperations: in.AllowedOperations,
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSessionByToken returns the session for the token. A missing or
// invalidated session is ErrSessionNotFound; a session past its expiry is
// ErrSessionExpired.
func (m *Manager) GetSessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	return m.resolve(ctx, token)
}

// ValidateSession is GetSessionByToken under the name callers gate requests
// with. The same NotFound and Expired distinction applies.
func (m *Manager) ValidateSession(ctx context.Context, token string) (*domain.Session, error) {
	return m.resolve(ctx, token)
}

// RefreshSession extends the session's expiry forward from now by the
// lifetime it was issued with, capped at the standard duration. A session
// issued under a shortened policy lifetime keeps that lifetime: refresh
// renews the window, it never widens it. Expiry only moves forward: a refresh
// that would shorten the session leaves it unchanged. Expired or invalidated
// sessions cannot be refreshed.
func (m *Manager) RefreshSession(ctx context.Context, token string) (*domain.Session, error) {
	s, err := m.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	extend := s.ExpiresAt.Sub(s.CreatedAt)
	if extend <= 0 || extend > m.defaultTTL {
		extend = m.defaultTTL
	}
	newExpiry := m.now().UTC().Add(extend)
	if !newExpiry.After(s.ExpiresAt) {
		return s, nil
	}
	if err := m.repo.UpdateExpiry(ctx, s.ID, newExpiry); err != nil {
		return nil, err
	}
	s.ExpiresAt = newExpiry
	return s, nil
}

// InvalidateSession deactivates the session for the token. Invalidating a
// missing or already inactive session is a no-op.
func (m *Manager) InvalidateSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidInput
	}
	s, err := m.repo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if s == nil || !s.Active {
		return nil
	}
	if err := m.repo.Deactivate(ctx, s.ID); err != nil {
		return err
	}
	m.recordRevoked(ctx, s.UserID, "session invalidated")
	return nil
}

// InvalidateAllUserSessions deactivates every active session of the user and
// returns how many were affected.
func (m *Manager) InvalidateAllUserSessions(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrInvalidInput
	}
	n, err := m.repo.DeactivateAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.recordRevoked(ctx, userID, "all sessions invalidated")
	}
	return n, nil
}

// CleanupExpiredSessions hard-deletes sessions that expired more than the
// retention window ago. Sessions inside the window stay queryable for audit.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int, error) {
	cutoff := m.now().UTC().Add(-m.retention)
	return m.repo.DeleteExpiredBefore(ctx, cutoff)
}

// GetSessionStats returns an aggregate snapshot. "Created today" is bounded
// by local midnight of the server's clock.
func (m *Manager) GetSessionStats(ctx context.Context) (domain.Stats, error) {
	now := m.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return m.repo.Stats(ctx, now, startOfDay)
}

func (m *Manager) resolve(ctx context.Context, token string) (*domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidInput
	}
	s, err := m.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if s == nil || !s.Active {
		return nil, ErrSessionNotFound
	}
	if s.Expired(m.now()) {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// recordRevoked appends a revocation event. Failures do not fail the
// revocation itself.
func (m *Manager) recordRevoked(ctx context.Context, userID, description string) {
	if m.events == nil {
		return
	}
	_, _ = m.events.Record(ctx, securityevent.Entry{
		UserID:      userID,
		Type:        eventdomain.TypeSessionRevoked,
		Description: description,
		Severity:    eventdomain.SeverityInfo,
	})
}

// Package securityevent records security-relevant actions to the append-only event log.
package securityevent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sso-portal/backend/internal/securityevent/domain"
	eventrepo "sso-portal/backend/internal/securityevent/repository"
)

// Entry carries the caller-supplied fields of one security event.
type Entry struct {
	UserID       string
	Type         string
	Description  string
	Severity     domain.Severity
	IPAddress    string
	UserAgent    string
	Location     string
	RiskScore    float64
	ConnectionID string
}

// Recorder writes security events. Unlike fire-and-forget audit trails, Record
// returns the persistence error: a decision that cannot be recorded must not be
// treated as recorded.
type Recorder struct {
	repo eventrepo.Repository
}

// NewRecorder returns a Recorder persisting to repo.
func NewRecorder(repo eventrepo.Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends one event and returns it.
func (r *Recorder) Record(ctx context.Context, entry Entry) (*domain.SecurityEvent, error) {
	severity := entry.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}
	e := &domain.SecurityEvent{
		ID:           uuid.New().String(),
		UserID:       entry.UserID,
		Type:         entry.Type,
		Description:  entry.Description,
		Severity:     severity,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Location:     entry.Location,
		RiskScore:    entry.RiskScore,
		ConnectionID: entry.ConnectionID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

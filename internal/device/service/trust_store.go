// Package service implements the device trust store: recognizing devices per
// user, bumping last-seen, and flipping trust only on explicit action.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sso-portal/backend/internal/device/domain"
	devicerepo "sso-portal/backend/internal/device/repository"
	"sso-portal/backend/internal/securityevent"
	eventdomain "sso-portal/backend/internal/securityevent/domain"
)

// Sentinel errors; handlers map them to HTTP status codes.
var (
	ErrInvalidInput   = errors.New("device: user id and fingerprint are required")
	ErrDeviceNotFound = errors.New("device: not found")
)

// RegisterInput carries the fields of a device sighting.
type RegisterInput struct {
	UserID      string
	Fingerprint string
	DeviceName  string
	DeviceType  string
	Browser     string
	OS          string
}

// TrustStore tracks device fingerprints per user. Trust defaults to false on
// registration and flips only via Trust; Revoke deletes the row so a revoked
// device that reconnects is treated as new again.
type TrustStore struct {
	repo   devicerepo.Repository
	events *securityevent.Recorder
}

// NewTrustStore returns a TrustStore over the given repository. events may be
// nil when trust-change auditing is not wanted (tests).
func NewTrustStore(repo devicerepo.Repository, events *securityevent.Recorder) *TrustStore {
	return &TrustStore{repo: repo, events: events}
}

// IsNewDevice reports whether no (user, fingerprint) row exists yet.
func (s *TrustStore) IsNewDevice(ctx context.Context, userID, fingerprint string) (bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(fingerprint) == "" {
		return false, ErrInvalidInput
	}
	d, err := s.repo.GetByUserAndFingerprint(ctx, userID, fingerprint)
	if err != nil {
		return false, err
	}
	return d == nil, nil
}

// GetByFingerprint returns the user's device row for the fingerprint, or nil
// when the device is unknown. Does not bump last-seen.
func (s *TrustStore) GetByFingerprint(ctx context.Context, userID, fingerprint string) (*domain.DeviceFingerprint, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(fingerprint) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByUserAndFingerprint(ctx, userID, fingerprint)
}

// Register records a sighting of the device. First sighting creates the row
// untrusted; later sightings bump last-seen. Registration is idempotent under
// concurrent duplicates via the (user, fingerprint) uniqueness constraint.
func (s *TrustStore) Register(ctx context.Context, in RegisterInput) (*domain.DeviceFingerprint, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.Fingerprint) == "" {
		return nil, ErrInvalidInput
	}
	now := time.Now().UTC()
	return s.repo.Upsert(ctx, &domain.DeviceFingerprint{
		ID:          uuid.New().String(),
		UserID:      in.UserID,
		Fingerprint: in.Fingerprint,
		DeviceName:  in.DeviceName,
		DeviceType:  in.DeviceType,
		Browser:     in.Browser,
		OS:          in.OS,
		Trusted:     false,
		FirstSeenAt: now,
		LastSeenAt:  now,
	})
}

// Trust marks the user's device as trusted. Fails with ErrDeviceNotFound when
// the device does not exist or belongs to a different user.
func (s *TrustStore) Trust(ctx context.Context, userID, deviceID string) error {
	d, err := s.owned(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateTrusted(ctx, d.ID, true); err != nil {
		return err
	}
	s.recordTrustChange(ctx, d, "device trusted")
	return nil
}

// Revoke deletes the device row entirely (not a soft flag).
func (s *TrustStore) Revoke(ctx context.Context, userID, deviceID string) error {
	d, err := s.owned(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, d.ID); err != nil {
		return err
	}
	s.recordTrustChange(ctx, d, "device revoked")
	return nil
}

// ListDevices returns the user's devices, most recently seen first.
func (s *TrustStore) ListDevices(ctx context.Context, userID string) ([]*domain.DeviceFingerprint, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *TrustStore) owned(ctx context.Context, userID, deviceID string) (*domain.DeviceFingerprint, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(deviceID) == "" {
		return nil, ErrInvalidInput
	}
	d, err := s.repo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.UserID != userID {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

func (s *TrustStore) recordTrustChange(ctx context.Context, d *domain.DeviceFingerprint, what string) {
	if s.events == nil {
		return
	}
	// Trust-change audit is supplementary; the trust mutation itself already
	// succeeded, so a failed write must not undo it.
	_, _ = s.events.Record(ctx, securityevent.Entry{
		UserID:      d.UserID,
		Type:        eventdomain.TypeDeviceTrustChange,
		Description: fmt.Sprintf("%s (%s)", what, d.Fingerprint),
		Severity:    eventdomain.SeverityInfo,
	})
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"sso-portal/backend/internal/mfa"
	"sso-portal/backend/internal/mfa/domain"
	mfarepo "sso-portal/backend/internal/mfa/repository"
	"sso-portal/backend/internal/security"
	"sso-portal/backend/internal/securityevent"
	eventdomain "sso-portal/backend/internal/securityevent/domain"
)

var (
	ErrInvalidInput   = errors.New("mfa: invalid input")
	ErrNotEnrolled    = errors.New("mfa: user not enrolled")
	ErrAlreadyEnabled = errors.New("mfa: already enabled")
	ErrSetupPending   = errors.New("mfa: setup not verified")
	ErrInvalidCode    = errors.New("mfa: invalid code")
)

const backupCodeCount = 10

// Alphabet for backup codes; ambiguous characters omitted.
const backupCodeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

// Service manages per-user TOTP factors and backup codes.
type Service struct {
	repo   mfarepo.Repository
	totp   *mfa.TOTP
	box    *mfa.SecretBox
	hasher *security.Hasher
	events *securityevent.Recorder
	now    func() time.Time
}

// NewService returns an MFA factor service.
func NewService(repo mfarepo.Repository, totp *mfa.TOTP, box *mfa.SecretBox, hasher *security.Hasher, events *securityevent.Recorder) *Service {
	return &Service{
		repo:   repo,
		totp:   totp,
		box:    box,
		hasher: hasher,
		events: events,
		now:    time.Now,
	}
}

// SetupResult is returned once at setup time. The secret and backup codes
// are never retrievable again.
type SetupResult struct {
	Secret       string
	ProvisionURI string
	QRCodePNG    string // base64-encoded PNG
	BackupCodes  []string
}

// SetupMFA starts enrollment for the user: a fresh secret, provisioning QR
// code and backup codes. The factor stays disabled until VerifySetup
// confirms the user's authenticator produces valid codes. Re-running setup
// before verification replaces the pending enrollment.
func (s *Service) SetupMFA(ctx context.Context, userID, account string) (*SetupResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	existing, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Enabled {
		return nil, ErrAlreadyEnabled
	}

	secret, err := s.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	sealed, err := s.box.Seal(secret)
	if err != nil {
		return nil, err
	}
	codes, hashes, err := s.generateBackupCodes()
	if err != nil {
		return nil, err
	}

	if account == "" {
		account = userID
	}
	uri := s.totp.ProvisionURI(secret, account)
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}

	err = s.repo.Upsert(ctx, &domain.Enrollment{
		UserID:      userID,
		Enabled:     false,
		SecretEnc:   sealed,
		BackupCodes: hashes,
		UpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return &SetupResult{
		Secret:       secret,
		ProvisionURI: uri,
		QRCodePNG:    base64.StdEncoding.EncodeToString(png),
		BackupCodes:  codes,
	}, nil
}

// VerifySetup confirms a pending enrollment with a code from the user's
// authenticator and enables the factor.
func (s *Service) VerifySetup(ctx context.Context, userID, code string) error {
	e, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrNotEnrolled
	}
	if e.Enabled {
		return ErrAlreadyEnabled
	}
	ok, err := s.verifyTOTP(e, code)
	if err != nil {
		return err
	}
	if !ok {
		s.recordFailure(ctx, userID, "mfa setup verification failed")
		return ErrInvalidCode
	}
	now := s.now().UTC()
	e.Enabled = true
	e.SetupAt = &now
	e.UpdatedAt = now
	if err := s.repo.Upsert(ctx, e); err != nil {
		return err
	}
	s.recordChange(ctx, userID, "mfa enabled")
	return nil
}

// VerifyCode checks a TOTP code or an unused backup code for an enabled
// factor. A backup code that matches is consumed and cannot be used again.
func (s *Service) VerifyCode(ctx context.Context, userID, code string) error {
	e, err := s.enabledEnrollment(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := s.verifyTOTP(e, code)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if s.consumeBackupCode(ctx, e, code) {
		return nil
	}
	s.recordFailure(ctx, userID, "mfa verification failed")
	return ErrInvalidCode
}

// Enrolled reports whether the user has an enabled factor.
func (s *Service) Enrolled(ctx context.Context, userID string) (bool, error) {
	e, err := s.repo.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return e != nil && e.Enabled, nil
}

// DisableMFA removes the user's factor. The caller must prove possession of
// a currently valid code.
func (s *Service) DisableMFA(ctx context.Context, userID, code string) error {
	if err := s.VerifyCode(ctx, userID, code); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.recordChange(ctx, userID, "mfa disabled")
	return nil
}

// RegenerateBackupCodes replaces all backup codes, gated on a valid code.
// Previously issued codes stop working.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	if err := s.VerifyCode(ctx, userID, code); err != nil {
		return nil, err
	}
	e, err := s.enabledEnrollment(ctx, userID)
	if err != nil {
		return nil, err
	}
	codes, hashes, err := s.generateBackupCodes()
	if err != nil {
		return nil, err
	}
	e.BackupCodes = hashes
	e.UpdatedAt = s.now().UTC()
	if err := s.repo.Upsert(ctx, e); err != nil {
		return nil, err
	}
	s.recordChange(ctx, userID, "mfa backup codes regenerated")
	return codes, nil
}

func (s *Service) enabledEnrollment(ctx context.Context, userID string) (*domain.Enrollment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	e, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotEnrolled
	}
	if !e.Enabled {
		return nil, ErrSetupPending
	}
	return e, nil
}

func (s *Service) verifyTOTP(e *domain.Enrollment, code string) (bool, error) {
	secret, err := s.box.Open(e.SecretEnc)
	if err != nil {
		return false, err
	}
	return s.totp.Verify(secret, code, s.now())
}

// consumeBackupCode removes the matching backup code hash and persists the
// shrunken list. Returns false when no code matches.
func (s *Service) consumeBackupCode(ctx context.Context, e *domain.Enrollment, code string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for i, hash := range e.BackupCodes {
		if s.hasher.Compare(hash, []byte(normalized)) == nil {
			e.BackupCodes = append(e.BackupCodes[:i], e.BackupCodes[i+1:]...)
			e.UpdatedAt = s.now().UTC()
			if err := s.repo.Upsert(ctx, e); err != nil {
				return false
			}
			return true
		}
	}
	return false
}

func (s *Service) generateBackupCodes() (codes, hashes []string, err error) {
	for i := 0; i < backupCodeCount; i++ {
		code, err := randomBackupCode()
		if err != nil {
			return nil, nil, err
		}
		hash, err := s.hasher.Hash([]byte(code))
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, code)
		hashes = append(hashes, hash)
	}
	return codes, hashes, nil
}

// randomBackupCode returns a code like "XK3M-V7QT".
func randomBackupCode() (string, error) {
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, r := range raw {
		if i == 4 {
			b.WriteByte('-')
		}
		b.WriteByte(backupCodeAlphabet[int(r)%len(backupCodeAlphabet)])
	}
	return b.String(), nil
}

func (s *Service) recordFailure(ctx context.Context, userID, description string) {
	if s.events == nil {
		return
	}
	_, _ = s.events.Record(ctx, securityevent.Entry{
		UserID:      userID,
		Type:        eventdomain.TypeMFAFailure,
		Description: description,
		Severity:    eventdomain.SeverityHigh,
	})
}

func (s *Service) recordChange(ctx context.Context, userID, description string) {
	if s.events == nil {
		return
	}
	_, _ = s.events.Record(ctx, securityevent.Entry{
		UserID:      userID,
		Type:        eventdomain.TypeSettingChange,
		Description: description,
		Severity:    eventdomain.SeverityMedium,
	})
}

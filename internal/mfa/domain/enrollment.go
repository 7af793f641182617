package domain

import "time"

// Enrollment is a user's TOTP factor. The secret is stored encrypted;
// BackupCodes holds bcrypt hashes of the codes still unused.
type Enrollment struct {
	UserID      string
	Enabled     bool
	SecretEnc   string
	BackupCodes []string
	SetupAt     *time.Time // nil until setup is verified
	UpdatedAt   time.Time
}

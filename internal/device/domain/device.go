package domain

import "time"

// DeviceFingerprint is a recognized client device for a user. (UserID, Fingerprint)
// is unique; registering the same fingerprint again bumps LastSeenAt instead of
// creating a second row.
type DeviceFingerprint struct {
	ID          string
	UserID      string
	Fingerprint string
	DeviceName  string
	DeviceType  string
	Browser     string
	OS          string
	Trusted     bool
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

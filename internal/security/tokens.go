// Package security provides session token generation and backup-code hashing.
package security

import (
	"crypto/rand"
	"encoding/base64"
)

// sessionTokenBytes is the entropy of a session token before encoding. 32 bytes
// keeps the collision probability negligible across any realistic session count.
const sessionTokenBytes = 32

// GenerateSessionToken returns an opaque, unguessable bearer token from a
// cryptographically secure source. An error here means the platform's random
// source is broken; callers must treat it as fatal, not retryable.
func GenerateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

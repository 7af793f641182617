package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies MFA backup codes using bcrypt. Callers must not
// log or persist plaintext codes.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Backup codes
// carry enough entropy that cost 10 is sufficient.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of code, suitable for storage.
func (h *Hasher) Hash(code []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(code, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies code against the stored hash in constant time. Returns nil
// if they match; an error (including bcrypt.ErrMismatchedHashAndPassword) if not.
func (h *Hasher) Compare(hash string, code []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), code)
}

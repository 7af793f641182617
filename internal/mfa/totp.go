// Package mfa implements the TOTP primitives behind the factor service:
// RFC 6238 code generation and verification, and authenticated encryption
// of stored secrets.
package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	totpSecretBytes = 20
	totpPeriod      = 30
	totpDigits      = 6
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTP generates and verifies RFC 6238 time-based codes (SHA-1, 6 digits,
// 30 second period). Skew is how many adjacent periods are accepted on
// either side of the current one.
type TOTP struct {
	Issuer string
	Skew   int
}

// NewTOTP returns a TOTP verifier for the given issuer accepting one period
// of clock skew.
func NewTOTP(issuer string) *TOTP {
	return &TOTP{Issuer: issuer, Skew: 1}
}

// GenerateSecret returns a fresh 160-bit secret as unpadded base32.
func (t *TOTP) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// ProvisionURI returns the otpauth:// URI authenticator apps enroll from.
func (t *TOTP) ProvisionURI(secret, account string) string {
	label := url.PathEscape(t.Issuer + ":" + account)
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", t.Issuer)
	v.Set("period", strconv.Itoa(totpPeriod))
	v.Set("digits", strconv.Itoa(totpDigits))
	v.Set("algorithm", "SHA1")
	return "otpauth://totp/" + label + "?" + v.Encode()
}

// GenerateCode returns the code for the base32 secret at the given time.
func (t *TOTP) GenerateCode(secret string, now time.Time) (string, error) {
	key, err := b32.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}
	return hotpCode(key, now.Unix()/totpPeriod), nil
}

// Verify reports whether code is valid for the base32 secret at the given
// time, within the configured skew. Malformed codes are simply invalid.
func (t *TOTP) Verify(secret, code string, now time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !allDigits(trimmed) {
		return false, nil
	}
	key, err := b32.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return false, fmt.Errorf("decode totp secret: %w", err)
	}
	if len(key) == 0 {
		return false, errors.New("empty totp secret")
	}

	base := now.Unix() / totpPeriod
	for step := -t.Skew; step <= t.Skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(key, counter)), []byte(trimmed)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

func hotpCode(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))
	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	return fmt.Sprintf("%0*d", totpDigits, bin%1000000)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

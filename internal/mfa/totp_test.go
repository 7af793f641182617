package mfa

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"
)

// RFC 6238 appendix B vectors, truncated to 6 digits.
func TestTOTPVerifyRFCVectors(t *testing.T) {
	totp := &TOTP{Issuer: "test", Skew: 0}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte("12345678901234567890"))
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}
	for _, tc := range cases {
		ok, err := totp.Verify(secret, tc.code, time.Unix(tc.ts, 0))
		if err != nil {
			t.Fatalf("Verify at t=%d: %v", tc.ts, err)
		}
		if !ok {
			t.Errorf("vector at t=%d rejected", tc.ts)
		}
	}
}

func TestTOTPVerifySkew(t *testing.T) {
	totp := NewTOTP("test")
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte("12345678901234567890"))

	// Code for t=59 is valid one period later with skew 1, not two.
	ok, err := totp.Verify(secret, "287082", time.Unix(59+30, 0))
	if err != nil || !ok {
		t.Errorf("adjacent period rejected: ok=%v err=%v", ok, err)
	}
	ok, _ = totp.Verify(secret, "287082", time.Unix(59+90, 0))
	if ok {
		t.Error("code accepted outside the skew window")
	}
}

func TestTOTPVerifyRejectsMalformed(t *testing.T) {
	totp := NewTOTP("test")
	secret, err := totp.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	for _, code := range []string{"", "12345", "1234567", "12345a", "abc def"} {
		ok, err := totp.Verify(secret, code, time.Now())
		if err != nil {
			t.Fatalf("Verify(%q): %v", code, err)
		}
		if ok {
			t.Errorf("malformed code %q accepted", code)
		}
	}
}

func TestGenerateSecret(t *testing.T) {
	totp := NewTOTP("test")
	a, err := totp.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	b, err := totp.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if a == b {
		t.Error("secrets must be unique")
	}
	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(a); err != nil {
		t.Errorf("secret is not valid base32: %v", err)
	}
}

func TestProvisionURI(t *testing.T) {
	totp := NewTOTP("SSO Portal")
	uri := totp.ProvisionURI("JBSWY3DPEHPK3PXP", "alice@example.com")
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("uri = %q, want otpauth://totp/ prefix", uri)
	}
	for _, want := range []string{"secret=JBSWY3DPEHPK3PXP", "digits=6", "period=30", "algorithm=SHA1", "issuer=SSO+Portal"} {
		if !strings.Contains(uri, want) {
			t.Errorf("uri %q missing %q", uri, want)
		}
	}
}

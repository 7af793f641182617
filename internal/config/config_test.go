package config

import (
	"encoding/base64"
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.SessionTTL != "24h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "24h")
	}
	if cfg.SessionRetention != "168h" {
		t.Errorf("SessionRetention = %q, want %q", cfg.SessionRetention, "168h")
	}
	if cfg.SweepSchedule != "*/15 * * * *" {
		t.Errorf("SweepSchedule = %q, want default", cfg.SweepSchedule)
	}
	if cfg.MFAIssuer != "SSO Portal" {
		t.Errorf("MFAIssuer = %q, want %q", cfg.MFAIssuer, "SSO Portal")
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("SESSION_TTL", "12h")
	os.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.SessionTTL != "12h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "12h")
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q, want override", cfg.RedisURL)
	}
}

func TestLoad_InvalidMFAKey(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("MFA_ENCRYPTION_KEY", "not-base64!!")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject a malformed MFA_ENCRYPTION_KEY")
	}

	// Wrong length is also rejected.
	os.Setenv("MFA_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject a non-32-byte MFA_ENCRYPTION_KEY")
	}
}

func TestLoad_ProductionRequiresDatabase(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("Load should require DATABASE_URL in production")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := &Config{SessionTTL: "30m", SessionRetention: "48h"}
	if got := cfg.SessionTTLDuration(); got != 30*time.Minute {
		t.Errorf("SessionTTLDuration = %v, want 30m", got)
	}
	if got := cfg.SessionRetentionDuration(); got != 48*time.Hour {
		t.Errorf("SessionRetentionDuration = %v, want 48h", got)
	}

	bad := &Config{SessionTTL: "nope", SessionRetention: ""}
	if got := bad.SessionTTLDuration(); got != 24*time.Hour {
		t.Errorf("SessionTTLDuration fallback = %v, want 24h", got)
	}
	if got := bad.SessionRetentionDuration(); got != 168*time.Hour {
		t.Errorf("SessionRetentionDuration fallback = %v, want 168h", got)
	}
}

func TestMFAKey(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	cfg := &Config{MFAEncryptionKey: base64.StdEncoding.EncodeToString(raw)}
	key := cfg.MFAKey()
	if len(key) != 32 {
		t.Fatalf("MFAKey length = %d, want 32", len(key))
	}
	if (&Config{}).MFAKey() != nil {
		t.Error("MFAKey should be nil when unset")
	}
}

// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; when empty the server runs on in-memory stores (dev mode).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis connection URL for the session hot path; empty disables Redis and
	// sessions live in the primary store.
	RedisURL string `mapstructure:"REDIS_URL"`
	// SessionTTL is the standard session lifetime for allow decisions (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SessionRetention is how long expired session rows are kept before the sweep deletes them (e.g. "168h").
	SessionRetention string `mapstructure:"SESSION_RETENTION"`
	// SweepSchedule is the cron spec for the expired-session sweep (cmd/sweeper), e.g. "*/15 * * * *".
	SweepSchedule string `mapstructure:"SWEEP_SCHEDULE"`
	// MFAIssuer is the issuer label in TOTP provisioning URIs (shows up in authenticator apps).
	MFAIssuer string `mapstructure:"MFA_ISSUER"`
	// MFAEncryptionKey is the base64-encoded 32-byte AES key used to encrypt TOTP secrets at rest.
	MFAEncryptionKey string `mapstructure:"MFA_ENCRYPTION_KEY"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_RETENTION", "168h") // 7d
	v.SetDefault("SWEEP_SCHEDULE", "*/15 * * * *")
	v.SetDefault("MFA_ISSUER", "SSO Portal")
	v.SetDefault("MFA_ENCRYPTION_KEY", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.MFAEncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.MFAEncryptionKey)
		if err != nil || len(key) != 32 {
			return nil, errors.New("config: MFA_ENCRYPTION_KEY must be a base64-encoded 32-byte key")
		}
	}
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// SessionTTLDuration parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// SessionRetentionDuration parses SessionRetention as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) SessionRetentionDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionRetention)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// MFAKey returns the decoded AES key for TOTP secret encryption, or nil when not configured.
func (c *Config) MFAKey() []byte {
	if c == nil || c.MFAEncryptionKey == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(c.MFAEncryptionKey)
	if err != nil || len(key) != 32 {
		return nil
	}
	return key
}

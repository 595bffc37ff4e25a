package authgate

import (
	"errors"
	"time"
)

// Config defines the tunable surface of the Engine.
//
// Config instances are intended to be populated before [Builder.Build] and then
// treated as immutable.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Cache    CacheConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls token issuance. The signing secret is process-wide;
// a missing or short secret is a fatal misconfiguration caught at Build.
type TokenConfig struct {
	SigningSecret []byte
	Issuer        string
	SessionTTL    time.Duration
	RefreshTTL    time.Duration
	TwoStepTTL    time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls durable session behavior.
type SessionConfig struct {
	// SlidingCache extends the cache entry's TTL on every successful hit.
	SlidingCache bool
}

// CacheConfig controls the Redis projection of session records.
type CacheConfig struct {
	KeyPrefix string
	// TTL defaults to Token.SessionTTL when zero; the cache entry never
	// outlives the session token that references it.
	TTL time.Duration
}

// PasswordConfig carries the argon2id parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metric counters.
type MetricsConfig struct {
	Enabled bool
}

const (
	defaultSessionTTL = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultTwoStepTTL = 5 * time.Minute
)

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:     "authgate",
			SessionTTL: defaultSessionTTL,
			RefreshTTL: defaultRefreshTTL,
			TwoStepTTL: defaultTwoStepTTL,
		},
		Session: SessionConfig{
			SlidingCache: true,
		},
		Cache: CacheConfig{
			KeyPrefix: "agc",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DefaultConfig returns the baseline configuration: 15-minute session tokens,
// 7-day refresh tokens, sliding cache expiry, audit and metrics enabled.
func DefaultConfig() Config {
	return defaultConfig()
}

// Validate checks the configuration for fatal misconfiguration. Token secrets
// are process-level: a failure here must abort startup, not a request.
func (c *Config) Validate() error {
	if len(c.Token.SigningSecret) < 32 {
		return errors.New("token signing secret must be at least 32 bytes")
	}
	if c.Token.SessionTTL <= 0 {
		return errors.New("session token TTL must be positive")
	}
	if c.Token.RefreshTTL <= c.Token.SessionTTL {
		return errors.New("refresh token TTL must exceed session token TTL")
	}
	if c.Token.TwoStepTTL <= 0 {
		return errors.New("two-step token TTL must be positive")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache TTL must not be negative")
	}
	if c.Cache.KeyPrefix == "" {
		return errors.New("cache key prefix must not be empty")
	}
	if c.Password.Memory < 8*1024 || c.Password.Time < 1 || c.Password.Parallelism < 1 {
		return errors.New("argon2 parameters below minimum")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("argon2 salt and key lengths must be at least 16")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = cloneBytes(cfg.Token.SigningSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) cacheTTL() time.Duration {
	if c.Cache.TTL > 0 {
		return c.Cache.TTL
	}
	return c.Token.SessionTTL
}

package caseguard

import (
	"errors"
	"time"
)

// Config holds the engine settings. Start from [DefaultConfig] and override fields.
type Config struct {
	Lockout  LockoutConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the failed-login lock. Defaults are 5 attempts and 2 hours.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
}

const (
	// MaxLoginAttempts is the default failed-attempt threshold.
	MaxLoginAttempts = 5
	// LockDuration is the default lock length.
	LockDuration = 2 * time.Hour
)

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters and the minimum password length.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit recorder.
//
// MaxBodyBytes bounds how much of a request body is buffered for the sanitized
// request snapshot. Breaker settings guard persistence: after MaxFailures
// consecutive store errors the breaker opens for OpenTimeout and records are
// only emitted to the sink.
type AuditConfig struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	MaxBodyBytes int64
	Breaker      BreakerConfig
}

// BreakerConfig configures the circuit breaker around audit persistence.
type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxAttempts: MaxLoginAttempts,
			Duration:    LockDuration,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   6,
		},
		Audit: AuditConfig{
			Enabled:      true,
			BufferSize:   1024,
			DropIfFull:   true,
			MaxBodyBytes: 64 << 10,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	// Lockout
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout MaxAttempts must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Password
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 || c.Password.Parallelism < 1 {
		return errors.New("Password Time and Parallelism must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.MaxBodyBytes < 0 {
		return errors.New("Audit MaxBodyBytes must be >= 0")
	}
	if c.Audit.Breaker.OpenTimeout < 0 {
		return errors.New("Audit Breaker OpenTimeout must be >= 0")
	}

	return nil
}

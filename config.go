package authkit

import (
	"fmt"
	"time"

	"github.com/authkit-dev/authkit/jwt"
	"github.com/authkit-dev/authkit/otp"
	"github.com/authkit-dev/authkit/password"
)

// Config is the full engine configuration tree. Start from DefaultConfig,
// set signing keys and any overrides, then pass it to the Builder. There are
// deliberately no default signing keys: Validate fails until both classes
// have key material.
type Config struct {
	JWT      JWTConfig
	OTP      OTPConfig
	Password PasswordConfig
	Token    TokenConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig configures both token classes. Access and refresh keys must be
// set and must differ.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SigningMethod jwt.SigningMethod

	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer string
	Leeway time.Duration
}

// OTPConfig configures one-time codes for both purposes.
type OTPConfig struct {
	Digits int
	TTL    time.Duration
}

// PasswordConfig holds argon2id costs plus plaintext length policy.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength int
	MaxLength int
}

// TokenConfig configures the refresh record store.
type TokenConfig struct {
	// RedisPrefix namespaces all record keys.
	RedisPrefix string
	// ReuseMarkTTL bounds how long a consumed token is reported as reused
	// rather than unknown.
	ReuseMarkTTL time.Duration
}

// SecurityConfig holds optional abuse throttles. Disabled by default.
type SecurityConfig struct {
	EnableLoginThrottle bool
	EnableIPThrottle    bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration

	EnableRefreshThrottle bool
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
}

// AuditConfig controls the buffered audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production-shaped defaults: 15-minute access tokens,
// 7-day refresh tokens, 6-digit codes valid for 10 minutes. Signing keys are
// intentionally empty.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: jwt.MethodHS256,
			Issuer:        "authkit",
			Leeway:        30 * time.Second,
		},
		OTP: OTPConfig{
			Digits: otp.DefaultDigits,
			TTL:    10 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   6,
			MaxLength:   72,
		},
		Token: TokenConfig{
			RedisPrefix:  "art",
			ReuseMarkTTL: time.Hour,
		},
		Security: SecurityConfig{
			MaxLoginAttempts: 5,
			LoginCooldown:    15 * time.Minute,

			MaxRefreshAttempts: 10,
			RefreshCooldown:    time.Minute,
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

// Validate checks the config for internal consistency. Key material is
// validated in depth by jwt.NewManager during Build; this catches the
// plainly broken states early with readable errors.
func (c Config) Validate() error {
	if len(c.JWT.AccessPrivateKey) == 0 {
		return fmt.Errorf("config: JWT.AccessPrivateKey must be set (no default key is provided)")
	}
	if len(c.JWT.RefreshPrivateKey) == 0 {
		return fmt.Errorf("config: JWT.RefreshPrivateKey must be set (no default key is provided)")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("config: JWT TTLs must be positive")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return fmt.Errorf("config: JWT.RefreshTTL must exceed JWT.AccessTTL")
	}

	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return fmt.Errorf("config: OTP.Digits must be between 6 and 10")
	}
	if c.OTP.TTL <= 0 {
		return fmt.Errorf("config: OTP.TTL must be positive")
	}

	if c.Password.MinLength < 1 {
		return fmt.Errorf("config: Password.MinLength must be at least 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return fmt.Errorf("config: Password.MaxLength must be >= Password.MinLength")
	}

	if c.Token.ReuseMarkTTL <= 0 {
		return fmt.Errorf("config: Token.ReuseMarkTTL must be positive")
	}

	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts < 1 || c.Security.LoginCooldown <= 0 {
			return fmt.Errorf("config: login throttle enabled without attempts/cooldown")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts < 1 || c.Security.RefreshCooldown <= 0 {
			return fmt.Errorf("config: refresh throttle enabled without attempts/cooldown")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize < 1 {
		return fmt.Errorf("config: Audit.BufferSize must be at least 1")
	}

	return nil
}

func (c PasswordConfig) hashParams() password.Params {
	return password.Params{
		Memory:      c.Memory,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		SaltLength:  c.SaltLength,
		KeyLength:   c.KeyLength,
	}
}

package authkit

import (
	"context"
	"errors"
	"log"

	"github.com/authkit-dev/authkit/internal/rate"
	"github.com/authkit-dev/authkit/jwt"
	"github.com/authkit-dev/authkit/password"
	"github.com/authkit-dev/authkit/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Construction is allocation-only; no I/O
// happens until the Engine methods are called.
type Builder struct {
	config *Config
	redis  redis.UniversalClient
	users  UserStore
	mailer Mailer
	sink   AuditSink
}

// New starts a Builder chain.
func New() *Builder {
	return &Builder{}
}

// WithConfig sets the engine configuration. Required.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = &cfg
	return b
}

// WithRedis sets the Redis client used for refresh records and throttles.
// Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the durable user persistence collaborator. Required.
func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithMailer sets the code delivery collaborator. Optional; without one,
// codes are logged so development setups still work end to end.
func (b *Builder) WithMailer(mailer Mailer) *Builder {
	b.mailer = mailer
	return b
}

// WithAuditSink sets the audit event destination. Optional; defaults to
// discarding events when auditing is enabled without a sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// Build validates the configuration and assembles the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.config == nil {
		return nil, errors.New("authkit: config is required")
	}
	if b.redis == nil {
		return nil, errors.New("authkit: redis client is required")
	}
	if b.users == nil {
		return nil, errors.New("authkit: user store is required")
	}

	cfg := *b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessTTL:         cfg.JWT.AccessTTL,
		RefreshTTL:        cfg.JWT.RefreshTTL,
		SigningMethod:     cfg.JWT.SigningMethod,
		AccessPrivateKey:  cfg.JWT.AccessPrivateKey,
		AccessPublicKey:   cfg.JWT.AccessPublicKey,
		RefreshPrivateKey: cfg.JWT.RefreshPrivateKey,
		RefreshPublicKey:  cfg.JWT.RefreshPublicKey,
		Issuer:            cfg.JWT.Issuer,
		Leeway:            cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password.hashParams())
	if err != nil {
		return nil, err
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = codeLogMailer{}
	}

	engine := &Engine{
		config:       cfg,
		users:        b.users,
		mailer:       mailer,
		tokens:       token.NewStore(b.redis, cfg.Token.RedisPrefix, cfg.Token.ReuseMarkTTL),
		jwtManager:   jwtManager,
		passwordHash: hasher,
		rateLimiter: rate.New(b.redis, rate.Config{
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Security.LoginCooldown,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldown,
		}),
		audit:   newAuditDispatcher(cfg.Audit, b.sink),
		metrics: NewMetrics(cfg.Metrics),
	}

	return engine, nil
}

// codeLogMailer is the development fallback when no Mailer is configured.
type codeLogMailer struct{}

func (codeLogMailer) SendVerificationCode(_ context.Context, email, code string) error {
	log.Printf("authkit: verification code for %s: %s", email, code)
	return nil
}

func (codeLogMailer) SendPasswordResetCode(_ context.Context, email, code string) error {
	log.Printf("authkit: password reset code for %s: %s", email, code)
	return nil
}

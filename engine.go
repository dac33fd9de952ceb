package authkit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/authkit-dev/authkit/internal"
	"github.com/authkit-dev/authkit/internal/rate"
	"github.com/authkit-dev/authkit/jwt"
	"github.com/authkit-dev/authkit/password"
	"github.com/authkit-dev/authkit/token"
)

// Engine orchestrates registration, verification, login, token rotation, and
// password reset over its collaborators. Construct it through [Builder];
// after Build every method is safe for concurrent use.
type Engine struct {
	config       Config
	users        UserStore
	mailer       Mailer
	tokens       *token.Store
	jwtManager   *jwt.Manager
	passwordHash *password.Hasher
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RefreshTTL reports how long issued refresh tokens live. Transports use it
// to size cookie lifetimes.
func (e *Engine) RefreshTTL() time.Duration {
	if e == nil || e.jwtManager == nil {
		return 0
	}
	return e.jwtManager.RefreshTTL()
}

// Ping checks the token store backend and reports the round-trip time.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return e.tokens.Ping(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return time.Now()
}

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.tokens == nil || e.jwtManager == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	return nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password fail identically with ErrInvalidCredentials; an
// unverified account fails with ErrEmailNotVerified.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email = NormalizeEmail(email)
	if email == "" || plaintext == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	ip := clientIPFromContext(ctx)
	if e.config.Security.EnableLoginThrottle {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", email, ErrLoginRateLimited, nil)
				return nil, ErrLoginRateLimited
			}
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.recordLoginFailure(ctx, "", email, ip)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	match, err := e.passwordHash.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !match {
		e.recordLoginFailure(ctx, user.ID, email, ip)
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, email, ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}

	e.maybeRehashPassword(ctx, user.ID, plaintext, user.PasswordHash)

	if e.config.Security.EnableLoginThrottle {
		if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
			log.Printf("authkit: reset login counter: %v", err)
		}
	}

	pair, err := e.issuePair(ctx, user.ID)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, email, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, email, nil, func() map[string]string {
		meta := map[string]string{}
		if ua := userAgentFromContext(ctx); ua != "" {
			meta["user_agent"] = ua
		}
		return meta
	})

	return &LoginResult{User: profileOf(user), Tokens: pair}, nil
}

// Refresh rotates a refresh token: verify the signature, atomically consume
// the record, issue a fresh pair. Each token rotates at most once; a token
// that already rotated fails with ErrRefreshReuse.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, nil)
		return TokenPair{}, ErrRefreshInvalid
	}

	tokenHash := internal.HashToken(refreshToken)

	if e.config.Security.EnableRefreshThrottle {
		if err := e.rateLimiter.CheckRefresh(ctx, tokenHash); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricRefreshRateLimited)
				e.emitAudit(ctx, auditEventRefreshRateLimited, false, claims.UID, "", ErrRefreshRateLimited, nil)
				return TokenPair{}, ErrRefreshRateLimited
			}
			return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	rec, err := e.tokens.Consume(ctx, tokenHash)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrReuseDetected):
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, claims.UID, "", ErrRefreshReuse, nil)
		return TokenPair{}, ErrRefreshReuse
	case errors.Is(err, token.ErrNotFound), errors.Is(err, token.ErrRecordCorrupt):
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UID, "", ErrRefreshInvalid, nil)
		return TokenPair{}, ErrRefreshInvalid
	default:
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// The verified claims are the identity source; the record only proves
	// the token is still active. A mismatch means the record belongs to a
	// different token lineage.
	if rec.UserID != claims.UID {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UID, "", ErrRefreshInvalid, nil)
		return TokenPair{}, ErrRefreshInvalid
	}

	pair, err := e.issuePair(ctx, claims.UID)
	if err != nil {
		return TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.UID, "", nil, nil)

	return pair, nil
}

// Logout revokes the presented refresh token. A token that is expired,
// unknown, or already revoked fails with ErrRefreshInvalid, so a second
// logout with the same token is rejected.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if err := e.ready(); err != nil {
		return err
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		return ErrRefreshInvalid
	}

	_, err = e.tokens.Consume(ctx, internal.HashToken(refreshToken))
	switch {
	case err == nil:
	case errors.Is(err, token.ErrNotFound),
		errors.Is(err, token.ErrReuseDetected),
		errors.Is(err, token.ErrRecordCorrupt):
		return ErrRefreshInvalid
	default:
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, claims.UID, "", nil, nil)

	return nil
}

// LogoutAll revokes every outstanding refresh token for the user and returns
// how many were revoked.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if userID == "" {
		return 0, ErrInvalidInput
	}

	removed, err := e.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricRevokeAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"revoked": fmt.Sprintf("%d", removed)}
	})

	return removed, nil
}

// ValidateAccess verifies an access token and returns the authenticated user
// ID from its claims. No store lookup happens on this path.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return &AuthResult{UserID: claims.UID}, nil
}

// issuePair signs a fresh access and refresh token and persists the refresh
// record before returning, so a pair the caller holds is always rotatable.
func (e *Engine) issuePair(ctx context.Context, userID string) (TokenPair, error) {
	access, err := e.jwtManager.CreateAccess(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	refresh, claims, err := e.jwtManager.CreateRefresh(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	rec := token.Record{
		TokenHash: internal.HashToken(refresh),
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := e.tokens.Save(ctx, rec); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, userID, email, ip string) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, email, ErrInvalidCredentials, nil)

	if e.config.Security.EnableLoginThrottle {
		if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			log.Printf("authkit: increment login counter: %v", err)
		}
	}
}

// maybeRehashPassword transparently upgrades a stored hash to the current
// parameters after a successful verification. Best effort.
func (e *Engine) maybeRehashPassword(ctx context.Context, userID, plaintext, stored string) {
	needs, err := e.passwordHash.NeedsRehash(stored)
	if err != nil || !needs {
		return
	}

	upgraded, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, userID, upgraded); err != nil {
		log.Printf("authkit: password rehash upgrade: %v", err)
	}
}

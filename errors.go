package authkit

import "errors"

// Engine lifecycle.
var (
	// ErrEngineNotReady is returned when an Engine method is called before
	// Build completed or after Close.
	ErrEngineNotReady = errors.New("engine not ready")
)

// Registration and account state.
var (
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already in use")
	// ErrEmailNotVerified is returned on login before email verification.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrUserNotFound is returned when no matching account exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput is returned for requests that fail basic validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPasswordPolicy is returned when a password violates length policy.
	ErrPasswordPolicy = errors.New("password does not meet policy")
)

// Credentials and one-time codes.
var (
	// ErrInvalidCredentials is the single error for unknown email and wrong
	// password, so responses do not reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrOTPInvalid covers every code failure mode: unknown account, no
	// outstanding code, expired code, and mismatch.
	ErrOTPInvalid = errors.New("invalid or expired code")
	// ErrLoginRateLimited is returned when the login attempt budget is spent.
	ErrLoginRateLimited = errors.New("too many login attempts")
)

// Tokens.
var (
	// ErrTokenInvalid is returned for access tokens that fail verification.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrRefreshInvalid is returned for refresh tokens that are expired,
	// forged, revoked, or otherwise unknown.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse is returned when an already-rotated refresh token is
	// presented again. Kept distinct from ErrRefreshInvalid for audit and
	// metrics; transports should surface both identically.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrRefreshRateLimited is returned when the refresh budget is spent.
	ErrRefreshRateLimited = errors.New("too many refresh attempts")
)

// Collaborator contract sentinels. UserStore implementations return these so
// the Engine can map storage outcomes without knowing the backend.
var (
	// ErrStoreDuplicateEmail reports a uniqueness violation on create.
	ErrStoreDuplicateEmail = errors.New("user store: duplicate email")
	// ErrStoreNotFound reports a lookup miss.
	ErrStoreNotFound = errors.New("user store: not found")
)

// ErrBackendUnavailable wraps infrastructure failures (Redis, user store)
// that are not the caller's fault.
var ErrBackendUnavailable = errors.New("auth backend unavailable")

// Class buckets an engine error into the transport-facing outcome classes.
// Anything outside the four explicit classes is internal.
type Class int

const (
	ClassInternal Class = iota
	ClassBadRequest
	ClassUnauthorized
	ClassNotFound
	ClassConflict
)

// ClassOf maps an engine error to its outcome class. Reuse maps to the same
// class as any other bad refresh token so callers cannot probe rotation
// state through response differences.
func ClassOf(err error) Class {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrOTPInvalid):
		return ClassBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrEmailNotVerified),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrRefreshReuse),
		errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited):
		return ClassUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return ClassNotFound
	case errors.Is(err, ErrEmailTaken):
		return ClassConflict
	default:
		return ClassInternal
	}
}

package authkit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/authkit-dev/authkit/otp"
)

// ForgotPassword issues a reset code for the account, overwriting any
// previous reset code, and dispatches it by email. The verification slot is
// untouched. Unknown accounts fail with ErrUserNotFound.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	email = NormalizeEmail(email)

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", email, ErrUserNotFound, nil)
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	code, slot, err := otp.Issue(e.config.OTP.Digits, e.config.OTP.TTL, time.Now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if err := e.users.SetOTP(ctx, user.ID, OTPPurposeReset, slot); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.dispatchCode(ctx, user.ID, email, code, OTPPurposeReset)

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, email, nil, nil)

	return user.Email, nil
}

// ResetPassword confirms a reset code and installs the new password. Every
// outstanding refresh token is revoked BEFORE the new hash is written, so a
// stolen session cannot outlive the reset; the code slot is cleared after.
// Unknown email and bad code both fail with ErrOTPInvalid.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	email = NormalizeEmail(email)
	if !e.validCodeShape(code) {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", email, ErrOTPInvalid, nil)
		return ErrOTPInvalid
	}
	if err := e.checkPasswordPolicy(newPassword); err != nil {
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", email, err, nil)
		return err
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.metricInc(MetricPasswordResetConfirmFailure)
			e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", email, ErrOTPInvalid, nil)
			return ErrOTPInvalid
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if !user.ResetOTP.Verify(code, e.now()) {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, user.ID, email, ErrOTPInvalid, nil)
		return ErrOTPInvalid
	}

	// Session containment first: if revocation fails the old password (and
	// every session) stays valid, which beats a reset that leaves stolen
	// refresh tokens alive.
	revoked, err := e.tokens.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := e.users.ClearOTP(ctx, user.ID, OTPPurposeReset); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if e.config.Security.EnableLoginThrottle {
		if err := e.rateLimiter.ResetLogin(ctx, email, clientIPFromContext(ctx)); err != nil {
			log.Printf("authkit: reset login counter: %v", err)
		}
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, user.ID, email, nil, func() map[string]string {
		return map[string]string{"revoked": fmt.Sprintf("%d", revoked)}
	})

	return nil
}

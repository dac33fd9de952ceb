package authkit

import (
	"context"
	"errors"
	"fmt"
)

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (e *Engine) validCodeShape(code string) bool {
	return len(code) == e.config.OTP.Digits && isNumericString(code)
}

// VerifyEmail confirms a registration code, marks the account verified,
// clears the slot, and issues a first token pair. Every failure mode —
// unknown email, already verified, expired or wrong code — reports the same
// ErrOTPInvalid.
func (e *Engine) VerifyEmail(ctx context.Context, email, code string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email = NormalizeEmail(email)
	if !e.validCodeShape(code) {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, "", email, ErrOTPInvalid, nil)
		return nil, ErrOTPInvalid
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.metricInc(MetricVerificationFailure)
			e.emitAudit(ctx, auditEventVerificationConfirm, false, "", email, ErrOTPInvalid, nil)
			return nil, ErrOTPInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// A verified account has no outstanding verification code; its slot was
	// cleared on first confirm, so re-verification falls through here too.
	if user.Verified || !user.VerifyOTP.Verify(code, e.now()) {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, user.ID, email, ErrOTPInvalid, nil)
		return nil, ErrOTPInvalid
	}

	if err := e.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := e.users.ClearOTP(ctx, user.ID, OTPPurposeVerify); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	user.Verified = true

	pair, err := e.issuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, user.ID, email, nil, nil)

	return &LoginResult{User: profileOf(user), Tokens: pair}, nil
}

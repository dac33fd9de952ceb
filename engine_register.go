package authkit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/authkit-dev/authkit/otp"
)

const (
	minNameLength = 2
	maxNameLength = 50
)

// NormalizeEmail lowercases and trims an email address the way the Engine
// and stores index it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= minNameLength && n <= maxNameLength
}

func (e *Engine) checkPasswordPolicy(plaintext string) error {
	if len(plaintext) < e.config.Password.MinLength || len(plaintext) > e.config.Password.MaxLength {
		return ErrPasswordPolicy
	}
	return nil
}

// Register creates an unverified account, commits a verification code to its
// slot, and dispatches the code by email. The account exists and the code is
// live even if delivery fails. Returns the normalized email.
func (e *Engine) Register(ctx context.Context, name, email, plaintext string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if !validName(name) || !validEmail(email) {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, ErrInvalidInput, nil)
		return "", ErrInvalidInput
	}
	if err := e.checkPasswordPolicy(plaintext); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, err, nil)
		return "", err
	}

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	code, slot, err := otp.Issue(e.config.OTP.Digits, e.config.OTP.TTL, time.Now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		VerifyOTP:    slot,
	})
	if err != nil {
		if errors.Is(err, ErrStoreDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, ErrEmailTaken, nil)
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.dispatchCode(ctx, user.ID, email, code, OTPPurposeVerify)

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, email, nil, nil)

	return user.Email, nil
}

// ResendVerification issues a fresh verification code for an unverified
// account, overwriting any previous code, and dispatches it by email.
// Unknown and already-verified accounts both fail with ErrUserNotFound.
func (e *Engine) ResendVerification(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	email = NormalizeEmail(email)

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.emitAudit(ctx, auditEventVerificationRequest, false, "", email, ErrUserNotFound, nil)
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if user.Verified {
		e.emitAudit(ctx, auditEventVerificationRequest, false, user.ID, email, ErrUserNotFound, nil)
		return "", ErrUserNotFound
	}

	code, slot, err := otp.Issue(e.config.OTP.Digits, e.config.OTP.TTL, time.Now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if err := e.users.SetOTP(ctx, user.ID, OTPPurposeVerify, slot); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.dispatchCode(ctx, user.ID, email, code, OTPPurposeVerify)

	e.metricInc(MetricVerificationRequest)
	e.emitAudit(ctx, auditEventVerificationRequest, true, user.ID, email, nil, nil)

	return user.Email, nil
}

// dispatchCode sends a one-time code without blocking the caller. The code
// is already committed to the store; delivery failure is logged and audited
// but never propagated.
func (e *Engine) dispatchCode(ctx context.Context, userID, email, code string, purpose OTPPurpose) {
	if e.mailer == nil {
		return
	}

	// Detach from the request lifetime but keep context values for audit.
	sendCtx := context.WithoutCancel(ctx)

	go func() {
		var err error
		switch purpose {
		case OTPPurposeReset:
			err = e.mailer.SendPasswordResetCode(sendCtx, email, code)
		default:
			err = e.mailer.SendVerificationCode(sendCtx, email, code)
		}
		if err != nil {
			log.Printf("authkit: send %s code to %s: %v", purpose, email, err)
			e.metricInc(MetricEmailDispatchFailure)
			e.emitAudit(sendCtx, auditEventEmailDispatchFailure, false, userID, email, ErrBackendUnavailable, func() map[string]string {
				return map[string]string{"purpose": string(purpose)}
			})
		}
	}()
}

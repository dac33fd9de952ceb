package authkit

import (
	"context"
	"time"

	"github.com/authkit-dev/authkit/otp"
)

// OTPPurpose selects one of the two independent code slots on a user record.
type OTPPurpose string

const (
	OTPPurposeVerify OTPPurpose = "verify"
	OTPPurposeReset  OTPPurpose = "reset"
)

// UserRecord is the durable user row as seen by the Engine. Email is stored
// lowercase and unique. Each OTP purpose has its own slot; issuing a new
// code overwrites the slot for that purpose only.
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Verified     bool
	VerifyOTP    otp.Slot
	ResetOTP     otp.Slot
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Slot returns the code slot for the given purpose.
func (u UserRecord) Slot(purpose OTPPurpose) otp.Slot {
	if purpose == OTPPurposeReset {
		return u.ResetOTP
	}
	return u.VerifyOTP
}

// CreateUserInput carries everything needed to persist a new, unverified
// user. The verification slot is written in the same create so a code is
// outstanding the moment the account exists.
type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
	VerifyOTP    otp.Slot
}

// UserStore is the durable persistence collaborator. Implementations must
// return ErrStoreDuplicateEmail on email uniqueness violations and
// ErrStoreNotFound on lookup misses; any other error is treated as a backend
// failure.
type UserStore interface {
	CreateUser(ctx context.Context, in CreateUserInput) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, id string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, id string) error
	SetOTP(ctx context.Context, id string, purpose OTPPurpose, slot otp.Slot) error
	ClearOTP(ctx context.Context, id string, purpose OTPPurpose) error
	UpdateName(ctx context.Context, id, name string) (UserRecord, error)
}

// Mailer delivers one-time codes. The Engine calls it fire-and-forget: codes
// are committed to the store first, and delivery failures never roll an
// operation back.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendPasswordResetCode(ctx context.Context, email, code string) error
}

// TokenPair is one issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Profile is the public projection of a user record.
type Profile struct {
	ID        string
	Name      string
	Email     string
	Verified  bool
	CreatedAt time.Time
}

// LoginResult is returned by operations that establish a session.
type LoginResult struct {
	User   Profile
	Tokens TokenPair
}

// AuthResult is the outcome of access-token validation. UserID comes from
// the verified claims, not from a store lookup.
type AuthResult struct {
	UserID string
}

func profileOf(u UserRecord) Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

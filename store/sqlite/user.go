package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authkit-dev/authkit"
	"github.com/authkit-dev/authkit/otp"
)

// userRow mirrors the users table. OTP expiries are stored as unix seconds;
// zero means no code outstanding.
type userRow struct {
	ID                 string
	Name               string
	Email              string
	PasswordHash       string
	Verified           int
	VerifyOTPHash      string
	VerifyOTPExpiresAt int64
	ResetOTPHash       string
	ResetOTPExpiresAt  int64
	CreatedAt          int64
	UpdatedAt          int64
}

func (r userRow) toRecord() authkit.UserRecord {
	rec := authkit.UserRecord{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Verified:     r.Verified != 0,
		CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:    time.Unix(r.UpdatedAt, 0).UTC(),
	}
	if r.VerifyOTPHash != "" {
		rec.VerifyOTP = otp.Slot{
			Hash:      r.VerifyOTPHash,
			ExpiresAt: time.Unix(r.VerifyOTPExpiresAt, 0).UTC(),
		}
	}
	if r.ResetOTPHash != "" {
		rec.ResetOTP = otp.Slot{
			Hash:      r.ResetOTPHash,
			ExpiresAt: time.Unix(r.ResetOTPExpiresAt, 0).UTC(),
		}
	}
	return rec
}

const userColumns = `id, name, email, password_hash, verified,
	verify_otp_hash, verify_otp_expires_at,
	reset_otp_hash, reset_otp_expires_at,
	created_at, updated_at`

func scanUser(row *sql.Row) (authkit.UserRecord, error) {
	var r userRow
	err := row.Scan(
		&r.ID, &r.Name, &r.Email, &r.PasswordHash, &r.Verified,
		&r.VerifyOTPHash, &r.VerifyOTPExpiresAt,
		&r.ResetOTPHash, &r.ResetOTPExpiresAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authkit.UserRecord{}, authkit.ErrStoreNotFound
		}
		return authkit.UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	return r.toRecord(), nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces constraint failures as plain errors with
	// the SQLite message text.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new unverified user with its verification slot.
func (s *Storage) CreateUser(ctx context.Context, in authkit.CreateUserInput) (authkit.UserRecord, error) {
	now := time.Now().Unix()
	id := uuid.NewString()
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var verifyExpires int64
	if !in.VerifyOTP.Empty() {
		verifyExpires = in.VerifyOTP.ExpiresAt.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, verified,
			verify_otp_hash, verify_otp_expires_at,
			reset_otp_hash, reset_otp_expires_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, 0, ?, ?, '', 0, ?, ?)`,
		id, in.Name, email, in.PasswordHash,
		in.VerifyOTP.Hash, verifyExpires,
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return authkit.UserRecord{}, authkit.ErrStoreDuplicateEmail
		}
		return authkit.UserRecord{}, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByEmail looks a user up by normalized email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (authkit.UserRecord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByID looks a user up by ID.
func (s *Storage) GetUserByID(ctx context.Context, id string) (authkit.UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UpdatePasswordHash replaces the stored password hash.
func (s *Storage) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return s.updateUser(ctx, id,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().Unix(), id)
}

// MarkVerified flips the verified flag.
func (s *Storage) MarkVerified(ctx context.Context, id string) error {
	return s.updateUser(ctx, id,
		`UPDATE users SET verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().Unix(), id)
}

// SetOTP overwrites the code slot for one purpose.
func (s *Storage) SetOTP(ctx context.Context, id string, purpose authkit.OTPPurpose, slot otp.Slot) error {
	var expires int64
	if !slot.Empty() {
		expires = slot.ExpiresAt.Unix()
	}

	query := `UPDATE users SET verify_otp_hash = ?, verify_otp_expires_at = ?, updated_at = ? WHERE id = ?`
	if purpose == authkit.OTPPurposeReset {
		query = `UPDATE users SET reset_otp_hash = ?, reset_otp_expires_at = ?, updated_at = ? WHERE id = ?`
	}

	return s.updateUser(ctx, id, query, slot.Hash, expires, time.Now().Unix(), id)
}

// ClearOTP empties the code slot for one purpose.
func (s *Storage) ClearOTP(ctx context.Context, id string, purpose authkit.OTPPurpose) error {
	return s.SetOTP(ctx, id, purpose, otp.Slot{})
}

// UpdateName changes the display name and returns the updated record.
func (s *Storage) UpdateName(ctx context.Context, id, name string) (authkit.UserRecord, error) {
	if err := s.updateUser(ctx, id,
		`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().Unix(), id); err != nil {
		return authkit.UserRecord{}, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Storage) updateUser(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	if affected == 0 {
		return authkit.ErrStoreNotFound
	}

	return nil
}

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authkit-dev/authkit"
	"github.com/authkit-dev/authkit/otp"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testInput(email string) authkit.CreateUserInput {
	return authkit.CreateUserInput{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		VerifyOTP: otp.Slot{
			Hash:      "$2a$08$verifyhash",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		},
	}
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, testInput("User@Example.COM"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	assert.Equal(t, "user@example.com", created.Email, "email should be stored lowercase")
	assert.Equal(t, "Test User", created.Name)
	assert.False(t, created.Verified)
	assert.False(t, created.VerifyOTP.Empty())
	assert.True(t, created.ResetOTP.Empty())
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := s.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, testInput("dup@example.com"))
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, testInput("dup@example.com"))
	assert.ErrorIs(t, err, authkit.ErrStoreDuplicateEmail)

	// Uniqueness is case-insensitive because emails normalize on write.
	_, err = s.CreateUser(ctx, testInput("DUP@example.com"))
	assert.ErrorIs(t, err, authkit.ErrStoreDuplicateEmail)
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, authkit.ErrStoreNotFound)

	_, err = s.GetUserByID(ctx, "missing-id")
	assert.ErrorIs(t, err, authkit.ErrStoreNotFound)
}

func TestMarkVerified(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, testInput("v@example.com"))
	require.NoError(t, err)

	require.NoError(t, s.MarkVerified(ctx, created.ID))

	got, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	assert.ErrorIs(t, s.MarkVerified(ctx, "missing-id"), authkit.ErrStoreNotFound)
}

func TestSetAndClearOTPSlotsAreIndependent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, testInput("otp@example.com"))
	require.NoError(t, err)

	resetSlot := otp.Slot{Hash: "$2a$08$resethash", ExpiresAt: time.Now().Add(10 * time.Minute)}
	require.NoError(t, s.SetOTP(ctx, created.ID, authkit.OTPPurposeReset, resetSlot))

	got, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$08$resethash", got.ResetOTP.Hash)
	assert.Equal(t, created.VerifyOTP.Hash, got.VerifyOTP.Hash, "verify slot must survive reset slot writes")

	require.NoError(t, s.ClearOTP(ctx, created.ID, authkit.OTPPurposeVerify))

	got, err = s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.VerifyOTP.Empty())
	assert.False(t, got.ResetOTP.Empty(), "reset slot must survive verify slot clears")
}

func TestSetOTPOverwrites(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, testInput("ow@example.com"))
	require.NoError(t, err)

	next := otp.Slot{Hash: "$2a$08$second", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, s.SetOTP(ctx, created.ID, authkit.OTPPurposeVerify, next))

	got, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$08$second", got.VerifyOTP.Hash)
}

func TestUpdatePasswordHash(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, testInput("pw@example.com"))
	require.NoError(t, err)

	require.NoError(t, s.UpdatePasswordHash(ctx, created.ID, "new-hash"))

	got, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "missing-id", "x"), authkit.ErrStoreNotFound)
}

func TestUpdateName(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, testInput("name@example.com"))
	require.NoError(t, err)

	got, err := s.UpdateName(ctx, created.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	_, err = s.UpdateName(ctx, "missing-id", "X")
	assert.ErrorIs(t, err, authkit.ErrStoreNotFound)
}

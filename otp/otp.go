package otp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultDigits is the code length used when no explicit length is configured.
const DefaultDigits = 6

// bcrypt cost for one-time codes. Codes live for minutes and carry ~20 bits
// of entropy; a moderate cost keeps issuance cheap under load.
const hashCost = 8

// ErrInvalidDigits is returned by Generate for unsupported code lengths.
var ErrInvalidDigits = errors.New("otp digits must be between 6 and 10")

// Slot holds the server-side state of one outstanding code: its salted hash
// and the instant it stops being acceptable. A zero Slot means no code is
// outstanding.
type Slot struct {
	Hash      string
	ExpiresAt time.Time
}

// Empty reports whether no code is outstanding in the slot.
func (s Slot) Empty() bool {
	return s.Hash == ""
}

// Verify reports whether code matches the slot. Empty and expired slots never
// match. Verify does not clear the slot; callers clear it after a successful
// use so the same code cannot be replayed.
func (s Slot) Verify(code string, now time.Time) bool {
	if s.Empty() {
		return false
	}
	if !now.Before(s.ExpiresAt) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.Hash), []byte(code)) == nil
}

// Generate returns a numeric code of the given length. Each digit is drawn
// independently from crypto/rand, so the distribution is uniform over the
// whole range and leading zeros are possible ("000123" is a valid code).
func Generate(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", ErrInvalidDigits
	}

	var b strings.Builder
	b.Grow(digits)

	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// HashCode returns a bcrypt hash of the code with a fresh salt.
func HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Issue generates a fresh code and returns it alongside the Slot to persist.
// The plaintext code exists only in the return value; storing the Slot always
// replaces whatever code was outstanding before.
func Issue(digits int, ttl time.Duration, now time.Time) (string, Slot, error) {
	code, err := Generate(digits)
	if err != nil {
		return "", Slot{}, err
	}

	hash, err := HashCode(code)
	if err != nil {
		return "", Slot{}, err
	}

	return code, Slot{Hash: hash, ExpiresAt: now.Add(ttl)}, nil
}

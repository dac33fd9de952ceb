// Package otp implements the one-time-code protocol used for email
// verification and password reset: crypto-random numeric codes, salted
// one-way hashing, and expiry-window verification. The package is pure —
// persistence of the resulting [Slot] belongs to the caller.
package otp

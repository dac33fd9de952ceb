// Package authkit provides an email/password authentication engine with
// short-lived JWT access tokens, long-lived rotating refresh tokens, and
// one-time-code email verification and password reset.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator contracts ([UserStore], [Mailer], [AuditSink]), and value
// types. Token records, signing, hashing, and rate limiting live in
// sub-packages and never leak their backends through the Engine API.
//
// # Token lifecycle
//
// Login and VerifyEmail issue an access/refresh pair. Refresh rotates the
// pair: the presented refresh token is consumed atomically, so each token
// rotates at most once — a replayed token is rejected and audited as reuse.
// Logout consumes without reissuing; ResetPassword revokes every record for
// the user before the new password hash is written.
//
// # What this package must NOT do
//
//   - Expose Redis clients, record encodings, or signing keys in its API.
//   - Reveal whether an email is registered through login or verification
//     error responses.
//   - Ship default signing keys; Validate rejects empty key material.
package authkit

// Package token stores one Redis record per issued refresh token, keyed by
// the token's SHA-256 digest. Records are single-use: an atomic Lua consume
// guarantees at-most-once rotation per presented token and leaves a
// short-lived marker so reuse of a consumed token is distinguishable from an
// unknown one. A per-user index supports revoke-all.
package token

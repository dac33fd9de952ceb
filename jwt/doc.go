// Package jwt manages issuance and verification of the two token classes —
// short-lived access tokens and long-lived refresh tokens — under distinct
// signing keys, with strict validation semantics suitable for low-latency
// authentication paths.
package jwt

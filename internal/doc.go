// Package internal contains helper utilities that are intentionally private
// to authkit: secure random identifiers and token digest helpers.
//
// # Sub-packages
//
//   - rate — Redis-backed rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API.
//   - Be imported by any package outside the authkit module.
package internal

// Package httpapi is the JSON transport over an [authkit.Engine].
//
// Responses use one envelope: {"success": bool, "message": string,
// "data": object}. Engine errors map to HTTP statuses through
// [authkit.ClassOf]; internal failures are logged and surfaced as a generic
// 500 with no backend detail.
//
// The refresh token travels in an HttpOnly, SameSite=Strict cookie scoped to
// the auth routes (Secure when [Config.SecureCookies] is set), with the
// request body as a fallback for non-browser clients. The access token
// travels as a bearer Authorization header and is checked by
// [middleware.Guard] on the /users/me routes.
//
// # What this package must NOT do
//
//   - Make auth decisions. Handlers validate shape and delegate to the Engine.
//   - Talk to Redis or the user store directly.
package httpapi

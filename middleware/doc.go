// Package middleware exposes net/http middleware that guards routes with a
// bearer access token. The guard reads the Authorization header, delegates
// to Engine.ValidateAccess, and injects the validated result into the
// request context — it makes no authentication decisions of its own.
package middleware

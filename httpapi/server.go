package httpapi

import (
	"context"
	"net"
	"net/http"

	authkit "github.com/authkit-dev/authkit"
	"github.com/authkit-dev/authkit/middleware"
)

const (
	defaultCookieName = "refresh_token"
	defaultCookiePath = "/auth"

	maxBodyBytes = 1 << 20
)

// Config controls transport behavior. Engine semantics are configured on the
// Engine itself.
type Config struct {
	// SecureCookies marks the refresh cookie Secure. Enable in production.
	SecureCookies bool
	// CookieName overrides the refresh cookie name. Default "refresh_token".
	CookieName string
	// CookiePath scopes the refresh cookie. Default "/auth", so the browser
	// only sends it to auth endpoints.
	CookiePath string
}

// Server is the JSON transport over an [authkit.Engine]. It owns request
// decoding, validation, the refresh-token cookie, and error-to-status
// mapping; every decision belongs to the Engine.
type Server struct {
	engine *authkit.Engine
	config Config
	mux    *http.ServeMux
}

// NewServer wires all routes onto a fresh mux.
func NewServer(engine *authkit.Engine, cfg Config) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}

	s := &Server{engine: engine, config: cfg, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the root handler for mounting on an http.Server.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		s.mux.ServeHTTP(w, r.WithContext(requestContext(r)))
	})
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /auth/verify-email", s.handleVerifyEmail)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /auth/refresh-token", s.handleRefresh)
	s.mux.HandleFunc("POST /auth/logout", s.handleLogout)
	s.mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)
	s.mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)
	s.mux.HandleFunc("POST /auth/resend-verification", s.handleResendVerification)

	guard := middleware.Guard(s.engine)
	s.mux.Handle("GET /users/me", guard(http.HandlerFunc(s.handleCurrentUser)))
	s.mux.Handle("PUT /users/me", guard(http.HandlerFunc(s.handleUpdateProfile)))

	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// requestContext attaches the caller's IP and user agent so engine throttling
// and audit see them.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = authkit.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = authkit.WithUserAgent(ctx, ua)
	}
	return ctx
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

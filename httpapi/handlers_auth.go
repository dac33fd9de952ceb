package httpapi

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	authkit "github.com/authkit-dev/authkit"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionData struct {
	AccessToken string          `json:"accessToken"`
	User        *profilePayload `json:"user,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validName(req.Name) || !validEmail(req.Email) || !validPassword(req.Password) {
		writeError(w, authkit.ErrInvalidInput)
		return
	}

	email, err := s.engine.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]string{"email": email})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validEmail(req.Email) || !validOTP(req.OTP) {
		writeError(w, authkit.ErrOTPInvalid)
		return
	}

	res, err := s.engine.VerifyEmail(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}

	s.setRefreshCookie(w, res.Tokens.RefreshToken)
	profile := profileFrom(res.User)
	writeData(w, http.StatusOK, sessionData{AccessToken: res.Tokens.AccessToken, User: &profile})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, authkit.ErrInvalidCredentials)
		return
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	s.setRefreshCookie(w, res.Tokens.RefreshToken)
	profile := profileFrom(res.User)
	writeData(w, http.StatusOK, sessionData{AccessToken: res.Tokens.AccessToken, User: &profile})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tokenStr, ok := s.refreshTokenFromRequest(r)
	if !ok {
		writeError(w, authkit.ErrRefreshInvalid)
		return
	}

	pair, err := s.engine.Refresh(r.Context(), tokenStr)
	if err != nil {
		writeError(w, err)
		return
	}

	s.setRefreshCookie(w, pair.RefreshToken)
	writeData(w, http.StatusOK, sessionData{AccessToken: pair.AccessToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// The cookie is cleared regardless of outcome; a stale cookie on the
	// client has no value once the server rejected it.
	tokenStr, ok := s.refreshTokenFromRequest(r)
	if !ok {
		s.clearRefreshCookie(w)
		writeError(w, authkit.ErrRefreshInvalid)
		return
	}

	err := s.engine.Logout(r.Context(), tokenStr)
	s.clearRefreshCookie(w)
	if err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "logged out")
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validEmail(req.Email) {
		writeError(w, authkit.ErrInvalidInput)
		return
	}

	email, err := s.engine.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"email": email})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validEmail(req.Email) || !validOTP(req.OTP) {
		writeError(w, authkit.ErrOTPInvalid)
		return
	}
	if !validPassword(req.Password) {
		writeError(w, authkit.ErrPasswordPolicy)
		return
	}

	if err := s.engine.ResetPassword(r.Context(), req.Email, req.OTP, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "password updated")
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validEmail(req.Email) {
		writeError(w, authkit.ErrInvalidInput)
		return
	}

	email, err := s.engine.ResendVerification(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"email": email})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rtt, err := s.engine.Ping(r.Context())
	if err != nil {
		writeEnvelope(w, http.StatusServiceUnavailable, envelope{Success: false, Message: "degraded"})
		return
	}

	writeData(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"redis_rtt": rtt.String(),
	})
}

// Refresh token transport: cookie preferred, body fallback for non-browser
// clients.
func (s *Server) refreshTokenFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(s.config.CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	var req refreshRequest
	if err := decodeJSON(r, &req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken, true
	}

	return "", false
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	maxAge := int(s.engine.RefreshTTL() / time.Second)
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    token,
		Path:     s.config.CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     s.config.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// Handler-level validation mirrors the engine's limits so obviously bad
// requests are rejected before any hashing work happens.

func validName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 2 && n <= 50
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

func validPassword(password string) bool {
	return len(password) >= 6 && len(password) <= 72
}

func validOTP(code string) bool {
	if len(code) < 6 || len(code) > 10 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

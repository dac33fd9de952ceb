package httpapi

import (
	"net/http"
	"time"

	authkit "github.com/authkit-dev/authkit"
	"github.com/authkit-dev/authkit/middleware"
)

type profilePayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

func profileFrom(p authkit.Profile) profilePayload {
	return profilePayload{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Verified:  p.Verified,
		CreatedAt: p.CreatedAt,
	}
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, authkit.ErrTokenInvalid)
		return
	}

	profile, err := s.engine.CurrentUser(r.Context(), res.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, profileFrom(profile))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, authkit.ErrTokenInvalid)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validName(req.Name) {
		writeError(w, authkit.ErrInvalidInput)
		return
	}

	profile, err := s.engine.UpdateProfile(r.Context(), res.UserID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, profileFrom(profile))
}

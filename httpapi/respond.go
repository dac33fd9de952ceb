package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	authkit "github.com/authkit-dev/authkit"
)

// envelope is the uniform response shape. Data is omitted on errors; Message
// is omitted when Data says enough.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, envelope{Success: true, Message: message})
}

// writeError maps an engine error to its HTTP status. Operational errors
// surface their message verbatim; anything internal is logged and replaced
// with a generic 500 so backend detail never leaks.
func writeError(w http.ResponseWriter, err error) {
	class := authkit.ClassOf(err)
	if class == authkit.ClassInternal {
		log.Printf("httpapi: internal error: %v", err)
		writeEnvelope(w, http.StatusInternalServerError, envelope{Success: false, Message: "internal server error"})
		return
	}

	writeEnvelope(w, statusForClass(class), envelope{Success: false, Message: err.Error()})
}

func statusForClass(class authkit.Class) int {
	switch class {
	case authkit.ClassBadRequest:
		return http.StatusBadRequest
	case authkit.ClassUnauthorized:
		return http.StatusUnauthorized
	case authkit.ClassNotFound:
		return http.StatusNotFound
	case authkit.ClassConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

// decodeJSON rejects malformed bodies with ErrInvalidInput so they map to
// 400 like any other validation failure.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return authkit.ErrInvalidInput
	}
	return nil
}

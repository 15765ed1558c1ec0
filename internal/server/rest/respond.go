package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/geocrypt/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), "error encoding response", "error", err)
	}
}

func (s *Server) writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	s.writeJSON(w, r, status, errorResponse{Error: detail})
}

// writeError maps a service error to a status code and a client-safe detail.
// Server-side failures are logged and reported without internals.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.writeDetail(w, r, status, detail)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, common.ErrObjectMissing):
		return http.StatusNotFound, "File content not found"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Not authorized to access this file"
	case errors.Is(err, common.ErrInvalidOrExpiredCode):
		return http.StatusUnauthorized, "Invalid or expired OTP"
	case errors.Is(err, common.ErrLocationMismatch):
		return http.StatusUnauthorized, "Location verification failed"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Incorrect username or password"
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, "Username or email already registered"
	case errors.Is(err, common.ErrNotificationFailed):
		return http.StatusInternalServerError, "Failed to send OTP"
	case errors.Is(err, common.ErrStorageUnavailable):
		return http.StatusInternalServerError, "Storage unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

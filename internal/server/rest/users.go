package rest

import (
	"encoding/json"
	"net/http"
	"time"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

const maxJSONBody = 1 << 20

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		s.writeDetail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	u, token, err := s.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "username", u.UserName)
	s.writeJSON(w, r, http.StatusCreated, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userResponse{ID: u.ID, Username: u.UserName, Email: u.Email, CreatedAt: u.CreatedAt},
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		s.writeDetail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	u, token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userResponse{ID: u.ID, Username: u.UserName, Email: u.Email, CreatedAt: u.CreatedAt},
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	u, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, userResponse{ID: u.ID, Username: u.UserName, Email: u.Email, CreatedAt: u.CreatedAt})
}

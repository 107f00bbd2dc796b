package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/flickfinder/flickfinder/internal/auth"
	"github.com/flickfinder/flickfinder/internal/models"
)

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse contains the JWT token and the session it carries.
type SessionResponse struct {
	Token   string         `json:"token"`
	Session models.Session `json:"session"`
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.credentials.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyCredentials) ||
			errors.Is(err, auth.ErrInvalidUsername) ||
			errors.Is(err, auth.ErrPasswordTooLong) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("auth: register failed", "user", req.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if !created {
		respondError(w, http.StatusConflict, "username already exists")
		return
	}

	h.logger.Info("auth: user registered", "user", req.Username)
	h.issueSession(w, http.StatusCreated, req.Username)
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password required")
		return
	}

	if !h.credentials.Validate(req.Username, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	h.issueSession(w, http.StatusOK, req.Username)
}

func (h *Handler) issueSession(w http.ResponseWriter, status int, username string) {
	token, session, err := h.tokens.Issue(username)
	if err != nil {
		h.logger.Error("auth: token generation failed", "user", username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, status, SessionResponse{Token: token, Session: session})
}

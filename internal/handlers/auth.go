package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookablehq/bookable-core/internal/auth"
	"github.com/bookablehq/bookable-core/internal/middleware"
	"github.com/bookablehq/bookable-core/internal/repository"
	"github.com/bookablehq/bookable-core/internal/session"
)

// AuthHandler serves login and logout.
type AuthHandler struct {
	users       *repository.UserRepository
	sessions    session.Store
	tokenSecret []byte
	sessionTTL  time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *repository.UserRepository, sessions session.Store, tokenSecret []byte, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		users:       users,
		sessions:    sessions,
		tokenSecret: tokenSecret,
		sessionTTL:  sessionTTL,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates a user and issues a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same response for unknown email and bad password.
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	sess := session.New(user.ID, user.HomeTenantID, user.Role, h.sessionTTL)
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("Failed to persist session")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	token, err := auth.SignSessionToken(h.tokenSecret, sess.ID, user.ID, h.sessionTTL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign session token")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: sess.ExpiresAt})
}

// Logout deletes the session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to delete session")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

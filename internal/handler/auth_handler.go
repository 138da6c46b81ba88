package handler

import (
	"net/http"
	"time"

	"audioshelf/internal/config"
	"audioshelf/internal/domain"
	"audioshelf/internal/middleware"
	"audioshelf/internal/service"
)

// AuthHandler handles login, logout and session introspection
type AuthHandler struct {
	auth *service.AuthService
	cfg  *config.Config
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(auth *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

// LoginRequest represents login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials, creates a session and sets the session cookie.
// A request that already carries a live session is rejected.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSession(r.Context()); ok {
		writeError(w, r, domain.ErrAlreadyLoggedIn)
		return
	}

	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, _, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, middleware.NewSessionCookie(token, time.Now().Add(h.cfg.SessionTTL), h.cfg.CookieSecure))
	writeSuccess(w, http.StatusOK, "server-authentication--logged-in")
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())

	if err := h.auth.Logout(r.Context(), session.Token); err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, middleware.ExpiredSessionCookie(h.cfg.CookieSecure))
	writeSuccess(w, http.StatusOK, "server-authentication--logged-out")
}

// Info returns the resolved session.
func (h *AuthHandler) Info(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())
	writeData(w, session)
}

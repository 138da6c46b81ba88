package handler

import (
	"net/http"

	"audioshelf/internal/domain"
	"audioshelf/internal/middleware"
	"audioshelf/internal/service"

	"github.com/go-chi/chi/v5"
)

// UserHandler handles account management
type UserHandler struct {
	auth *service.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// List returns all users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, users)
}

// Get returns one user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, user)
}

// CreateUserRequest represents user creation
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
}

// Create adds an account; the route is admin-gated.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.auth.CreateUser(r.Context(), req.Username, req.Password, req.Admin); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "user-create--success")
}

// UpdateUserRequest represents a partial user update
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Admin    *bool   `json:"admin,omitempty"`
}

// Update modifies an account. Users may edit themselves; only admins may
// edit others or grant admin.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())
	id := chi.URLParam(r, "id")

	if session.UserID != id && !session.Admin {
		writeError(w, r, domain.ErrNotAdmin)
		return
	}

	var req UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Only an admin can hand out or revoke the admin flag.
	if req.Admin != nil && !session.Admin {
		writeError(w, r, domain.ErrNotAdmin)
		return
	}

	if err := h.auth.UpdateUser(r.Context(), id, req.Username, req.Password, req.Admin); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "user-edit--success")
}

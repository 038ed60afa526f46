package handler

import (
	"log/slog"
	"net/http"

	"participa/internal/domain/services"
	"participa/internal/httputil"
)

// UserHandler handles user profile HTTP requests.
type UserHandler struct {
	users  services.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users services.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// GetUser returns a user profile. Private fields only come back when the
// caller asks for their own profile.
// GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	expose := id != "" && id == httputil.GetUserID(r)

	u, err := h.users.Get(r.Context(), id, expose)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, u)
}

// GetMe returns the caller's own profile.
// GET /api/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), httputil.GetUserID(r), true)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, u)
}

// UpdateMe patches the caller's profile.
// PUT /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, u)
}

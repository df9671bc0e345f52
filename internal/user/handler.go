// CivicVoice | 2026
// handler.go

package user

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/civicvoice/backend/internal/core"
	"github.com/civicvoice/backend/internal/middleware"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, validate: validate}
}

// Routes mounts the user management surface. Every route requires an
// authenticated caller; listing and deletion are admin-only.
func (h *Handler) Routes(authenticator func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authenticator)

	r.With(middleware.RequireRole(RoleAdmin)).Get("/", h.ListUsers)
	r.Get("/{id}", h.GetUser)
	r.Put("/{id}", h.UpdateUser)
	r.With(middleware.RequireRole(RoleAdmin)).Delete("/{id}", h.DeleteUser)

	return r
}

// ListUsers handles GET /api/users (admin only).
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Search: r.URL.Query().Get("search"),
		Role:   r.URL.Query().Get("role"),
	}
	params.Page = queryInt(r, "page")
	params.PageSize = queryInt(r, "pageSize")

	users, err := h.service.List(r.Context(), params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, UserListResponse{Users: ToUserResponseList(users)})
}

// GetUser handles GET /api/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

// UpdateUser handles PUT /api/users/{id}. Callers may edit their own
// profile; admins may edit anyone.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	if identity.UserID != id && identity.Role != RoleAdmin {
		core.Forbidden(w, "Cannot modify another user's profile")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), id, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

// DeleteUser handles DELETE /api/users/{id} (admin only). Deleting
// yourself is a 400.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		core.Unauthorized(w, "")
		return
	}

	if err := h.service.Delete(r.Context(), identity.UserID, id); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, map[string]string{"message": "User deleted"})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// CivicVoice | 2026
// handler.go

package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/civicvoice/backend/internal/core"
	"github.com/civicvoice/backend/internal/middleware"
	"github.com/civicvoice/backend/internal/user"
)

type Handler struct {
	service  *Service
	users    *user.Service
	validate *validator.Validate
}

func NewHandler(
	service *Service,
	users *user.Service,
	validate *validator.Validate,
) *Handler {
	return &Handler{service: service, users: users, validate: validate}
}

// ResolveIdentity adapts GetUserFromToken for the Authenticator
// middleware.
func (h *Handler) ResolveIdentity(
	ctx context.Context,
	token string,
) (*middleware.Identity, error) {
	u, err := h.service.GetUserFromToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &middleware.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}, nil
}

// Routes mounts the auth surface. Profile and credential management
// require a token; everything else is public.
func (h *Handler) Routes(authenticator func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/oauth", h.OAuth)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)
	r.Get("/representatives", h.Representatives)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/profile", h.Profile)
		r.Put("/profile", h.UpdateProfile)
		r.Put("/change-password", h.ChangePassword)
		r.Post("/verify", h.Verify)
	})

	return r
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	u, token, err := h.service.Register(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, AuthResponse{User: user.ToUserResponse(u), Token: token})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	u, token, err := h.service.Login(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, AuthResponse{User: user.ToUserResponse(u), Token: token})
}

// OAuth handles POST /api/auth/oauth.
func (h *Handler) OAuth(w http.ResponseWriter, r *http.Request) {
	var req OAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	u, token, err := h.service.OAuthLogin(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, AuthResponse{User: user.ToUserResponse(u), Token: token})
}

// Profile handles GET /api/auth/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ProfileResponse{User: user.ToUserResponse(u)})
}

// UpdateProfile handles PUT /api/auth/profile: the caller edits their
// own record.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req user.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ProfileResponse{User: user.ToUserResponse(u)})
}

// ChangePassword handles PUT /api/auth/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	err := h.service.ChangePassword(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "Password changed"})
}

// Verify handles POST /api/auth/verify: marks the caller's account
// verified.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.VerifyUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ProfileResponse{User: user.ToUserResponse(u)})
}

// ForgotPassword handles POST /api/auth/forgot-password. The response
// never reveals whether the email exists.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	h.service.ForgotPassword(r.Context(), req)

	core.OK(w, MessageResponse{
		Message: "If the email exists, a reset link has been sent",
	})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.ValidationFailed(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

// Representatives handles GET /api/auth/representatives.
func (h *Handler) Representatives(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Representatives(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, user.RepresentativesResponse{
		Representatives: user.ToUserResponseList(users),
	})
}

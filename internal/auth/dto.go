// CivicVoice | 2026
// dto.go

package auth

import (
	"github.com/civicvoice/backend/internal/user"
)

type RegisterRequest struct {
	Email            string  `json:"email"            validate:"required,email,max=255"`
	Password         string  `json:"password"         validate:"required,min=8,max=128"`
	Name             string  `json:"name"             validate:"required,min=2,max=100"`
	Phone            *string `json:"phone,omitempty"    validate:"omitempty,min=5,max=20"`
	District         *string `json:"district,omitempty" validate:"omitempty,max=100"`
	IsRepresentative bool    `json:"isRepresentative"`
	Position         *string `json:"position,omitempty" validate:"omitempty,max=100"`
	Party            *string `json:"party,omitempty"    validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// OAuthRequest carries the provider assertion. Verified defaults to
// true when omitted: providers that vouch for the email leave it unset.
type OAuthRequest struct {
	Provider   string  `json:"provider"   validate:"required,oneof=google facebook apple"`
	ProviderID string  `json:"providerId" validate:"required,max=255"`
	Email      string  `json:"email"      validate:"required,email,max=255"`
	Name       string  `json:"name"       validate:"required,min=2,max=100"`
	Phone      *string `json:"phone,omitempty"    validate:"omitempty,min=5,max=20"`
	Verified   *bool   `json:"verified,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=128"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

// AuthResponse is the register/login/oauth payload: the sanitized user
// plus a signed access token.
type AuthResponse struct {
	User  user.UserResponse `json:"user"`
	Token string            `json:"token"`
}

type ProfileResponse struct {
	User user.UserResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// CivicVoice | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/civicvoice/backend/internal/core"
	"github.com/civicvoice/backend/internal/user"
)

// UserStore is the slice of the user service the auth flows need. An
// interface so service tests run against an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetFullByID(ctx context.Context, id string) (*user.User, error)
	GetFullByEmail(ctx context.Context, email string) (*user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	LinkOAuth(ctx context.Context, id, provider, providerID string) error
	TouchActivity(ctx context.Context, id string) error
	VerifyUser(ctx context.Context, id string) (*user.User, error)
	Representatives(ctx context.Context) ([]user.User, error)
}

type Service struct {
	users  UserStore
	tokens *TokenManager
}

func NewService(users UserStore, tokens *TokenManager) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates a credential-backed account and returns it with a
// signed token. Duplicate email or phone is a conflict.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*user.User, string, error) {
	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	role := user.RoleUser
	balance := user.StartingBalanceUser
	if req.IsRepresentative {
		role = user.RoleRepresentative
		balance = user.StartingBalanceRepresentative
	}

	u := &user.User{
		Email:            req.Email,
		PasswordHash:     &hash,
		Name:             req.Name,
		Phone:            req.Phone,
		District:         req.District,
		IsRepresentative: req.IsRepresentative,
		Role:             role,
		Position:         req.Position,
		Party:            req.Party,
		Balance:          balance,
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateEmail):
			return nil, "", core.ConflictError("Email already registered")
		case errors.Is(err, core.ErrDuplicatePhone):
			return nil, "", core.ConflictError("Phone already registered")
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(created)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	slog.Info("user registered",
		"user_id", created.ID,
		"role", created.Role,
	)

	return created, token, nil
}

// Login verifies credentials and issues a token. Unknown email,
// OAuth-only account and wrong password are indistinguishable to the
// caller: all return the same 401.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*user.User, string, error) {
	u, err := s.users.GetFullByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, "", err
	}

	var hash *string
	if u != nil {
		hash = u.PasswordHash
	}

	if !core.VerifyPasswordTimingSafe(req.Password, hash) {
		return nil, "", core.UnauthorizedError("Invalid credentials")
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	if u.IsRepresentative {
		if err := s.users.TouchActivity(ctx, u.ID); err != nil {
			slog.Warn("touch activity failed", "user_id", u.ID, "error", err)
		}
	}

	return u.Sanitized(), token, nil
}

// OAuthLogin signs a user in via a trusted provider assertion, creating
// an account on first contact (verified unless the assertion says
// otherwise). An existing account with the same email is reused: it
// gets the provider identity linked if it has none, and representatives
// get their activity stamped, same as a credential login.
func (s *Service) OAuthLogin(
	ctx context.Context,
	req OAuthRequest,
) (*user.User, string, error) {
	u, err := s.users.GetFullByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, "", err
	}

	if u == nil {
		verified := true
		if req.Verified != nil {
			verified = *req.Verified
		}

		created, createErr := s.users.Create(ctx, &user.User{
			Email:         req.Email,
			Name:          req.Name,
			Phone:         req.Phone,
			Verified:      verified,
			Role:          user.RoleUser,
			Balance:       user.StartingBalanceUser,
			OAuthProvider: &req.Provider,
			OAuthID:       &req.ProviderID,
		})
		if createErr != nil {
			return nil, "", createErr
		}
		u = created
		slog.Info("oauth user created",
			"user_id", u.ID,
			"provider", req.Provider,
		)
	} else {
		if u.OAuthProvider == nil {
			if linkErr := s.users.LinkOAuth(
				ctx, u.ID, req.Provider, req.ProviderID,
			); linkErr != nil {
				return nil, "", linkErr
			}
			u.OAuthProvider = &req.Provider
			u.OAuthID = &req.ProviderID
		}

		if u.IsRepresentative {
			if err := s.users.TouchActivity(ctx, u.ID); err != nil {
				slog.Warn("touch activity failed", "user_id", u.ID, "error", err)
			}
		}

		u = u.Sanitized()
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return u, token, nil
}

// GetUserFromToken verifies the token and resolves the current account
// state through the cache-backed lookup. A valid token whose subject no
// longer exists is a 404: the token itself is fine, the account is gone.
func (s *Service) GetUserFromToken(
	ctx context.Context,
	tokenString string,
) (*user.User, error) {
	identity, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("User")
		}
		return nil, err
	}

	return u, nil
}

// ChangePassword swaps the stored hash after checking the current
// password against the full record.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID string,
	req ChangePasswordRequest,
) error {
	u, err := s.users.GetFullByID(ctx, userID)
	if err != nil {
		return err
	}

	if !core.VerifyPasswordTimingSafe(req.CurrentPassword, u.PasswordHash) {
		return core.NewAppError(
			core.ErrInvalidInput,
			"Current password is incorrect",
			http.StatusBadRequest,
		)
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	slog.Info("password changed", "user_id", userID)

	return nil
}

// VerifyUser marks the account verified.
func (s *Service) VerifyUser(ctx context.Context, userID string) (*user.User, error) {
	return s.users.VerifyUser(ctx, userID)
}

// ForgotPassword acknowledges the request without revealing whether the
// email exists. Delivery is not wired up yet, so the request is only
// logged.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) {
	u, err := s.users.GetFullByEmail(ctx, req.Email)
	if err != nil || u == nil {
		slog.Info("password reset requested for unknown email")
		return
	}

	// TODO: send the reset email once an outbound mail provider is chosen.
	slog.Info("password reset requested", "user_id", u.ID)
}

// ResetPassword completes a reset flow. No reset tokens are issued yet,
// so this always reports 501.
func (s *Service) ResetPassword(
	ctx context.Context,
	req ResetPasswordRequest,
) error {
	return core.NotImplementedError("Password reset")
}

// Representatives returns the public representative directory.
func (s *Service) Representatives(ctx context.Context) ([]user.User, error) {
	return s.users.Representatives(ctx)
}

// CivicVoice | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/civicvoice/backend/internal/cache"
	"github.com/civicvoice/backend/internal/core"
)

// Service wraps the repository with a read-through cache. Cached values
// are always sanitized: password hashes live only in the store of
// record, and the credential paths bypass the cache entirely.
type Service struct {
	repo    Repository
	cache   *cache.Cache
	userTTL time.Duration
}

const cacheKeyPrefix = "user:"

func NewService(repo Repository, c *cache.Cache, userTTL time.Duration) *Service {
	if userTTL <= 0 {
		userTTL = 300 * time.Second
	}

	return &Service{
		repo:    repo,
		cache:   c,
		userTTL: userTTL,
	}
}

func cacheKey(id string) string {
	return cacheKeyPrefix + id
}

// GetByID returns the sanitized user, serving from cache when a live
// entry exists and priming the cache on a miss.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	if cached, ok := s.cache.Get(cacheKey(id)); ok {
		if u, ok := cached.(*User); ok {
			return u, nil
		}
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sanitized := u.Sanitized()
	s.cache.SetTTL(cacheKey(id), sanitized, s.userTTL)

	return sanitized, nil
}

// GetFullByID returns the full record, hash included, straight from the
// store. Only credential flows should call this.
func (s *Service) GetFullByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetFullByEmail is the login lookup: full record, no cache.
func (s *Service) GetFullByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Create persists the user and primes the cache with the sanitized
// copy. Returns the sanitized user.
func (s *Service) Create(ctx context.Context, u *User) (*User, error) {
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	sanitized := u.Sanitized()
	s.cache.SetTTL(cacheKey(u.ID), sanitized, s.userTTL)

	return sanitized, nil
}

// UpdateProfile applies the non-nil fields of req to the user and
// refreshes the cache entry.
func (s *Service) UpdateProfile(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Phone != nil && *req.Phone != "" {
		existing, err := s.repo.GetByPhone(ctx, *req.Phone)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, core.ErrDuplicatePhone
		}
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.District != nil {
		u.District = req.District
	}
	if req.Position != nil {
		u.Position = req.Position
	}
	if req.Party != nil {
		u.Party = req.Party
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	sanitized := u.Sanitized()
	s.cache.SetTTL(cacheKey(id), sanitized, s.userTTL)

	return sanitized, nil
}

// VerifyUser marks the account verified and refreshes the cache.
func (s *Service) VerifyUser(ctx context.Context, id string) (*User, error) {
	if err := s.repo.SetVerified(ctx, id, true); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sanitized := u.Sanitized()
	s.cache.SetTTL(cacheKey(id), sanitized, s.userTTL)

	return sanitized, nil
}

// UpdatePassword stores the new hash. The cached copy never holds a
// hash, so no refresh is needed.
func (s *Service) UpdatePassword(
	ctx context.Context,
	id string,
	passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

// LinkOAuth attaches a provider identity to an existing account and
// evicts the cached copy.
func (s *Service) LinkOAuth(
	ctx context.Context,
	id, provider, providerID string,
) error {
	if err := s.repo.LinkOAuth(ctx, id, provider, providerID); err != nil {
		return err
	}

	s.cache.Delete(cacheKey(id))
	return nil
}

// TouchActivity bumps last_activity and evicts the cached copy so the
// next read sees the new timestamp. Best effort: callers log failures
// rather than failing their request.
func (s *Service) TouchActivity(ctx context.Context, id string) error {
	if err := s.repo.TouchActivity(ctx, id); err != nil {
		return err
	}

	s.cache.Delete(cacheKey(id))
	return nil
}

// Delete removes the target account. Self-deletion is rejected so an
// admin cannot lock themselves out mid-session.
func (s *Service) Delete(ctx context.Context, requesterID, targetID string) error {
	if requesterID == targetID {
		return core.NewAppError(
			core.ErrInvalidInput,
			"Cannot delete your own account",
			http.StatusBadRequest,
		)
	}

	if err := s.repo.Delete(ctx, targetID); err != nil {
		return err
	}

	s.cache.Delete(cacheKey(targetID))
	slog.Info("user deleted", "user_id", targetID, "deleted_by", requesterID)

	return nil
}

// List returns sanitized users matching params.
func (s *Service) List(ctx context.Context, params ListUsersParams) ([]User, error) {
	users, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	return sanitizeAll(users), nil
}

// Representatives returns the public representative directory, best
// rated first.
func (s *Service) Representatives(ctx context.Context) ([]User, error) {
	users, err := s.repo.Representatives(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch representatives: %w", err)
	}

	return sanitizeAll(users), nil
}

func sanitizeAll(users []User) []User {
	out := make([]User, 0, len(users))
	for i := range users {
		out = append(out, *users[i].Sanitized())
	}
	return out
}

// CivicVoice | 2026
// handler_test.go

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicvoice/backend/internal/cache"
	"github.com/civicvoice/backend/internal/core"
	"github.com/civicvoice/backend/internal/middleware"
	"github.com/civicvoice/backend/internal/user"
)

// fakeRepo backs a real user.Service for handler tests.
type fakeRepo struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*user.User)}
}

func (f *fakeRepo) Create(ctx context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.users {
		if existing.Email == u.Email {
			return core.ErrDuplicateEmail
		}
		if u.Phone != nil && existing.Phone != nil && *existing.Phone == *u.Phone {
			return core.ErrDuplicatePhone
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt

	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Phone != nil && *u.Phone == phone {
			clone := *u
			return &clone, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) Update(ctx context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = &hash
	return nil
}

func (f *fakeRepo) LinkOAuth(
	ctx context.Context,
	id, provider, providerID string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.OAuthProvider = &provider
	u.OAuthID = &providerID
	return nil
}

func (f *fakeRepo) SetVerified(ctx context.Context, id string, v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.Verified = v
	return nil
}

func (f *fakeRepo) TouchActivity(ctx context.Context, id string) error {
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeRepo) List(
	ctx context.Context,
	p user.ListUsersParams,
) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]user.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeRepo) Representatives(ctx context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var reps []user.User
	for _, u := range f.users {
		if u.IsRepresentative {
			reps = append(reps, *u)
		}
	}
	return reps, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	c := cache.New(cache.Options{DisableJanitor: true})
	t.Cleanup(c.Close)

	userSvc := user.NewService(newFakeRepo(), c, 300*time.Second)

	tokens, err := NewTokenManager(testJWTConfig())
	require.NoError(t, err)

	authSvc := NewService(userSvc, tokens)
	handler := NewHandler(authSvc, userSvc, validator.New(
		validator.WithRequiredStructEnabled(),
	))

	authenticator := middleware.Authenticator(
		middleware.TokenResolver(handler.ResolveIdentity),
	)

	r := chi.NewRouter()
	r.Mount("/api/auth", handler.Routes(authenticator))
	return r
}

func doJSON(
	t *testing.T,
	router chi.Router,
	method, path, token string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	// Register a citizen.
	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
		"name":     "Alice",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	registered := decodeBody[AuthResponse](t, w)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "USER", registered.User.Role)
	assert.Equal(t, 10, registered.User.Balance)
	assert.False(t, registered.User.Verified)

	// Wrong password is a generic 401.
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	errBody := decodeBody[map[string]any](t, w)
	assert.Equal(t, "Invalid credentials", errBody["error"])

	// Correct password logs in.
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, w.Code)
	loggedIn := decodeBody[AuthResponse](t, w)
	require.NotEmpty(t, loggedIn.Token)

	// The token resolves to the same account.
	w = doJSON(t, router, http.MethodGet, "/api/auth/profile", loggedIn.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeBody[ProfileResponse](t, w)
	assert.Equal(t, registered.User.ID, profile.User.ID)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "not-an-email",
		"password": "short",
		"name":     "A",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody[core.ErrorResponse](t, w)
	assert.Equal(t, "Validation error", body.Error)
	assert.NotEmpty(t, body.Details)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	payload := map[string]any{
		"email":    "dup@example.com",
		"password": "correct-horse-battery",
		"name":     "Dup",
	}

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusConflict, w.Code)

	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, "Email already registered", body["error"])
}

func TestProfileRequiresToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/auth/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfileEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
		"name":     "Alice",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	registered := decodeBody[AuthResponse](t, w)

	w = doJSON(t, router, http.MethodPut, "/api/auth/profile", registered.Token,
		map[string]any{
			"name":     "Alice Renamed",
			"district": "District 9",
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	profile := decodeBody[ProfileResponse](t, w)
	assert.Equal(t, "Alice Renamed", profile.User.Name)
	require.NotNil(t, profile.User.District)
	assert.Equal(t, "District 9", *profile.User.District)
}

func TestChangePasswordEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
		"name":     "Alice",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	registered := decodeBody[AuthResponse](t, w)

	// Wrong current password.
	w = doJSON(t, router, http.MethodPut, "/api/auth/change-password",
		registered.Token, map[string]any{
			"currentPassword": "wrong",
			"newPassword":     "new-horse-battery-staple",
		})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decodeBody[map[string]any](t, w)
	assert.Equal(t, "Current password is incorrect", errBody["error"])

	// Correct current password.
	w = doJSON(t, router, http.MethodPut, "/api/auth/change-password",
		registered.Token, map[string]any{
			"currentPassword": "correct-horse-battery",
			"newPassword":     "new-horse-battery-staple",
		})
	require.Equal(t, http.StatusOK, w.Code)

	// Old password no longer works.
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// New one does.
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "new-horse-battery-staple",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForgotPasswordAlwaysAccepts(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", "",
		map[string]any{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody[MessageResponse](t, w)
	assert.Equal(t, "If the email exists, a reset link has been sent", body.Message)
}

func TestResetPasswordNotImplementedEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/reset-password", "",
		map[string]any{
			"token":       "tok",
			"newPassword": "new-horse-battery-staple",
		})
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRepresentativesEndpointIsPublic(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":            "rep@example.com",
		"password":         "correct-horse-battery",
		"name":             "Rep",
		"isRepresentative": true,
		"position":         "Council Member",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/auth/representatives", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody[user.RepresentativesResponse](t, w)
	require.Len(t, body.Representatives, 1)
	assert.Equal(t, "REPRESENTATIVE", body.Representatives[0].Role)
	assert.Equal(t, 0, body.Representatives[0].Balance)
}

func TestOAuthEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/oauth", "", map[string]any{
		"provider":   "google",
		"providerId": "g-123",
		"email":      "bob@example.com",
		"name":       "Bob",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody[AuthResponse](t, w)
	assert.True(t, body.User.Verified)
	assert.NotEmpty(t, body.Token)
}

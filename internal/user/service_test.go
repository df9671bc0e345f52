// CivicVoice | 2026
// service_test.go

package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicvoice/backend/internal/cache"
	"github.com/civicvoice/backend/internal/core"
)

// fakeRepository is an in-memory Repository that counts reads so tests
// can tell cache hits from store hits.
type fakeRepository struct {
	mu       sync.Mutex
	users    map[string]*User
	idReads  int
	touched  int
	deleted  []string
	repsList []User
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[string]*User)}
}

func (f *fakeRepository) Create(ctx context.Context, u *User) error {
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

func (f *fakeRepository) GetByID(ctx context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.idReads++
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
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

func (f *fakeRepository) GetByPhone(ctx context.Context, phone string) (*User, error) {
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

// Update mirrors the store's RETURNING clause: the store assigns the
// timestamp and writes it back into u.
func (f *fakeRepository) Update(ctx context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	u.UpdatedAt = u.UpdatedAt.Add(time.Second)
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = &hash
	return nil
}

func (f *fakeRepository) LinkOAuth(
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

func (f *fakeRepository) SetVerified(ctx context.Context, id string, v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.Verified = v
	return nil
}

func (f *fakeRepository) TouchActivity(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.touched++
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, p ListUsersParams) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeRepository) Representatives(ctx context.Context) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]User{}, f.repsList...), nil
}

func newServiceForTest(t *testing.T) (*Service, *fakeRepository) {
	t.Helper()

	repo := newFakeRepository()
	c := cache.New(cache.Options{DisableJanitor: true})
	t.Cleanup(c.Close)

	return NewService(repo, c, 300*time.Second), repo
}

func seedUser(t *testing.T, repo *fakeRepository) *User {
	t.Helper()

	hash := "$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"
	u := &User{
		Email:        "alice@example.com",
		PasswordHash: &hash,
		Name:         "Alice",
		Role:         RoleUser,
		Balance:      StartingBalanceUser,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestGetByIDServesFromCache(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	seeded := seedUser(t, repo)
	ctx := context.Background()

	first, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Nil(t, first.PasswordHash, "cached copy must be sanitized")

	second, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	repo.mu.Lock()
	reads := repo.idReads
	repo.mu.Unlock()
	assert.Equal(t, 1, reads, "second lookup must not hit the store")
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newServiceForTest(t)

	_, err := svc.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetFullByEmailBypassesCache(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	seeded := seedUser(t, repo)

	u, err := svc.GetFullByEmail(context.Background(), seeded.Email)
	require.NoError(t, err)
	assert.NotNil(t, u.PasswordHash, "credential lookups need the hash")
}

func TestCreatePrimesCache(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &User{
		Email: "bob@example.com",
		Name:  "Bob",
		Role:  RoleUser,
	})
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, created.ID)
	require.NoError(t, err)

	repo.mu.Lock()
	reads := repo.idReads
	repo.mu.Unlock()
	assert.Equal(t, 0, reads, "lookup after create must be a cache hit")
}

func TestUpdateProfileRefreshesCache(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	seeded := seedUser(t, repo)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	newName := "Alice Updated"
	updated, err := svc.UpdateProfile(ctx, seeded.ID, UpdateUserRequest{
		Name: &newName,
	})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)

	cached, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, newName, cached.Name, "cache must reflect the update")
}

func TestUpdateProfileCarriesStoreTimestamp(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	seeded := seedUser(t, repo)
	ctx := context.Background()

	newName := "Alice Updated"
	updated, err := svc.UpdateProfile(ctx, seeded.ID, UpdateUserRequest{
		Name: &newName,
	})
	require.NoError(t, err)

	repo.mu.Lock()
	storedAt := repo.users[seeded.ID].UpdatedAt
	repo.mu.Unlock()

	assert.True(t, updated.UpdatedAt.Equal(storedAt),
		"response must carry the store's updated_at")

	cached, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.True(t, cached.UpdatedAt.Equal(storedAt),
		"cache must carry the store's updated_at")
}

func TestLinkOAuthEvictsCache(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	seeded := seedUser(t, repo)
	ctx := context.Background()

	cached, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Nil(t, cached.OAuthProvider)

	require.NoError(t, svc.LinkOAuth(ctx, seeded.ID, "google", "g-1"))

	fresh, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh.OAuthProvider)
	assert.Equal(t, "google", *fresh.OAuthProvider)
}

func TestUpdateProfilePhoneConflict(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	ctx := context.Background()

	seeded := seedUser(t, repo)

	phone := "+15550001111"
	other := &User{Email: "carol@example.com", Name: "Carol", Phone: &phone}
	require.NoError(t, repo.Create(ctx, other))

	_, err := svc.UpdateProfile(ctx, seeded.ID, UpdateUserRequest{Phone: &phone})
	assert.ErrorIs(t, err, core.ErrDuplicatePhone)
}

func TestUpdateProfileKeepsOwnPhone(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	ctx := context.Background()

	phone := "+15550001111"
	seeded := seedUser(t, repo)
	require.NoError(t, repo.Update(ctx, func() *User {
		u := *seeded
		u.Phone = &phone
		return &u
	}()))

	_, err := svc.UpdateProfile(ctx, seeded.ID, UpdateUserRequest{Phone: &phone})
	assert.NoError(t, err, "re-submitting your own phone is not a conflict")
}

func TestDeleteRejectsSelf(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	seeded := seedUser(t, repo)

	err := svc.Delete(context.Background(), seeded.ID, seeded.ID)
	require.Error(t, err)
	assert.Equal(t, 400, core.StatusForError(err))

	repo.mu.Lock()
	deleted := len(repo.deleted)
	repo.mu.Unlock()
	assert.Zero(t, deleted)
}

func TestDeleteEvictsCache(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	seeded := seedUser(t, repo)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, uuid.NewString(), seeded.ID)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, seeded.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestVerifyUser(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)
	seeded := seedUser(t, repo)

	u, err := svc.VerifyUser(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.True(t, u.Verified)
}

func TestRepresentativesAreSanitized(t *testing.T) {
	t.Parallel()

	svc, repo := newServiceForTest(t)

	hash := "secret-hash"
	rating := 4.5
	repo.repsList = []User{
		{
			ID:               uuid.NewString(),
			Email:            "rep@example.com",
			PasswordHash:     &hash,
			Name:             "Rep",
			IsRepresentative: true,
			Role:             RoleRepresentative,
			Rating:           &rating,
		},
	}

	reps, err := svc.Representatives(context.Background())
	require.NoError(t, err)
	require.Len(t, reps, 1)
	assert.Nil(t, reps[0].PasswordHash)
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamtodo/server/internal/module/user"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeUserRepo is an in-memory user.Repository.
type fakeUserRepo struct {
	users     map[string]*user.User
	teams     map[int64][]int64
	nextID    int64
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: make(map[string]*user.User),
		teams: make(map[int64][]int64),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.users[u.Username]; exists {
		return gorm.ErrDuplicatedKey
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	f.users[u.Username] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUserRepo) TeamIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.teams[userID], nil
}

func newTestService(repo user.Repository) *Service {
	jwt := NewJWTManager(&JWTConfig{
		Secret:      "test-secret-key-that-is-long-enough",
		TokenExpiry: 24 * time.Hour,
		Issuer:      "test",
	})
	return NewService(repo, jwt, nil, zap.NewNop())
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and trims username", func(t *testing.T) {
		svc := newTestService(newFakeUserRepo())

		u, err := svc.Register(ctx, &RegisterRequest{Username: "  alice  ", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.NotZero(t, u.ID)
		assert.NotEqual(t, "secret", u.PasswordHash)
	})

	t.Run("rejects blank username", func(t *testing.T) {
		svc := newTestService(newFakeUserRepo())

		_, err := svc.Register(ctx, &RegisterRequest{Username: "   ", Password: "secret"})
		assert.ErrorIs(t, err, ErrUsernameRequired)
	})

	t.Run("rejects password of length 3", func(t *testing.T) {
		svc := newTestService(newFakeUserRepo())

		_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "abc"})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("accepts password of length 4", func(t *testing.T) {
		svc := newTestService(newFakeUserRepo())

		_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "abcd"})
		assert.NoError(t, err)
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		svc := newTestService(newFakeUserRepo())

		_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret"})
		require.NoError(t, err)

		_, err = svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "other"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("maps duplicate-key race to conflict", func(t *testing.T) {
		repo := newFakeUserRepo()
		repo.createErr = gorm.ErrDuplicatedKey
		svc := newTestService(repo)

		_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Service, *fakeUserRepo) {
		repo := newFakeUserRepo()
		svc := newTestService(repo)
		_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret"})
		require.NoError(t, err)
		return svc, repo
	}

	t.Run("issues token for valid credentials", func(t *testing.T) {
		svc, _ := setup(t)

		token, u, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret"}, "127.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)

		subject, err := svc.jwt.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)
	})

	t.Run("rejects unknown username", func(t *testing.T) {
		svc, _ := setup(t)

		_, _, err := svc.Login(ctx, &LoginRequest{Username: "mallory", Password: "secret"}, "127.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("rejects wrong password with the same error", func(t *testing.T) {
		svc, _ := setup(t)

		_, _, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong"}, "127.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_ResolveSubject(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	_, err := svc.Register(ctx, &RegisterRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	t.Run("resolves existing subject", func(t *testing.T) {
		u, err := svc.ResolveSubject(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
	})

	t.Run("rejects subject with no stored user", func(t *testing.T) {
		_, err := svc.ResolveSubject(ctx, "ghost")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

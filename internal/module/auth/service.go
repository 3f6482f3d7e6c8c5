package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teamtodo/server/internal/module/user"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 4

// Service provides registration and login.
type Service struct {
	users   user.Repository
	jwt     *JWTManager
	limiter *LoginLimiter // nil disables login rate limiting
	logger  *zap.Logger
}

// NewService creates a new auth service.
func NewService(users user.Repository, jwt *JWTManager, limiter *LoginLimiter, logger *zap.Logger) *Service {
	return &Service{
		users:   users,
		jwt:     jwt,
		limiter: limiter,
		logger:  logger,
	}
}

// Register creates a new user from a username and password.
//
// The username is trimmed before validation and stored exactly as
// trimmed; uniqueness is case-sensitive. The pre-check keeps the common
// path friendly, but the unique index on users.username decides races:
// a concurrent duplicate insert comes back as gorm.ErrDuplicatedKey.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", u.ID),
		zap.String("username", u.Username),
	)

	return u, nil
}

// Login verifies credentials and issues a token. Unknown usernames and
// wrong passwords produce the same error so the response text does not
// reveal which usernames exist.
func (s *Service) Login(ctx context.Context, req *LoginRequest, clientIP string) (string, *user.User, error) {
	username := strings.TrimSpace(req.Username)

	if s.limiter != nil && !s.limiter.Allow(ctx, username, clientIP) {
		return "", nil, ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if !CheckPassword(u.PasswordHash, req.Password) {
		return "", nil, ErrInvalidCredentials
	}

	token, _, err := s.jwt.GenerateToken(u.Username)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, u, nil
}

// ResolveSubject resolves a verified token subject to a stored user.
// A subject that no longer resolves (user deleted) is an auth failure.
func (s *Service) ResolveSubject(ctx context.Context, subject string) (*user.User, error) {
	u, err := s.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve subject: %w", err)
	}
	return u, nil
}

// TeamIDs returns the user's team-id set for response building.
func (s *Service) TeamIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.users.TeamIDs(ctx, userID)
}

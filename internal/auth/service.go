package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/internal/users"
	"github.com/cartfold/cartfold-backend/pkg/auth/session"
	"github.com/cartfold/cartfold-backend/pkg/enums"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

type tokenMinter interface {
	Mint(userID uuid.UUID, role enums.UserRole) (token string, accessID string, err error)
	TTL() time.Duration
}

type sessionManager interface {
	Generate(ctx context.Context, userID, accessID string) (string, error)
	Consume(ctx context.Context, refreshToken string) (session.Session, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// Service exposes account registration and session operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserDTO, error)
	Login(ctx context.Context, input LoginInput) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type service struct {
	users    users.UserRepository
	tx       txRunner
	hasher   passwordHasher
	tokens   tokenMinter
	sessions sessionManager
	logg     *logger.Logger
}

// NewService builds an auth service backed by the provided stack.
func NewService(
	userRepo users.UserRepository,
	tx txRunner,
	hasher passwordHasher,
	tokens tokenMinter,
	sessions sessionManager,
	logg *logger.Logger,
) (Service, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token minter required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		users:    userRepo,
		tx:       tx,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		logg:     logg,
	}, nil
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords return the same message so accounts cannot be enumerated.
func (s *service) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	email := normalizeEmail(input.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if user == nil || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	match, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !match {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	pair, err := s.openSession(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	pair.User = toUserDTO(user)

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "recording last login failed")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")
	return pair, nil
}

// Refresh rotates the refresh token and mints a new access token.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refresh token is required")
	}

	sess, err := s.sessions.Consume(ctx, refreshToken)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotating session")
	}

	userID, err := uuid.Parse(sess.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parsing session user id")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if user == nil || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is not active")
	}

	return s.openSession(ctx, user.ID, user.Role)
}

// Logout revokes the refresh session. Unknown tokens are a no-op.
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "refresh token is required")
	}
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoking session")
	}
	return nil
}

func (s *service) openSession(ctx context.Context, userID uuid.UUID, role enums.UserRole) (*TokenPair, error) {
	token, accessID, err := s.tokens.Mint(userID, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	refresh, err := s.sessions.Generate(ctx, userID.String(), accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening session")
	}

	return &TokenPair{
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.tokens.TTL()),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

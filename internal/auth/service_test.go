package auth

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/internal/users"
	pkgauth "github.com/cartfold/cartfold-backend/pkg/auth"
	"github.com/cartfold/cartfold-backend/pkg/auth/session"
	"github.com/cartfold/cartfold-backend/pkg/config"
	"github.com/cartfold/cartfold-backend/pkg/db/models"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type stubUserRepo struct {
	byEmail  map[string]*models.User
	created  []*models.User
	profiles []*models.VendorProfile
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepo) WithTx(*gorm.DB) users.UserRepository { return s }

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.byEmail[email], nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, nil
}

func (s *stubUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = uuid.New()
	s.created = append(s.created, user)
	s.byEmail[user.Email] = user
	return nil
}

func (s *stubUserRepo) CreateVendorProfile(_ context.Context, profile *models.VendorProfile) error {
	profile.ID = uuid.New()
	s.profiles = append(s.profiles, profile)
	return nil
}

func (s *stubUserRepo) UpdateLastLogin(context.Context, uuid.UUID, time.Time) error { return nil }

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (stubHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

type stubSessions struct {
	sessions map[string]session.Session
	revoked  []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: map[string]session.Session{}}
}

func (s *stubSessions) Generate(_ context.Context, userID, accessID string) (string, error) {
	token := uuid.NewString()
	s.sessions[token] = session.Session{UserID: userID, AccessID: accessID}
	return token, nil
}

func (s *stubSessions) Consume(_ context.Context, refreshToken string) (session.Session, error) {
	sess, ok := s.sessions[refreshToken]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}
	delete(s.sessions, refreshToken)
	return sess, nil
}

func (s *stubSessions) Revoke(_ context.Context, refreshToken string) error {
	delete(s.sessions, refreshToken)
	s.revoked = append(s.revoked, refreshToken)
	return nil
}

func newTestService(t *testing.T) (Service, *stubUserRepo, *stubSessions) {
	t.Helper()
	repo := newStubUserRepo()
	sessions := newStubSessions()
	issuer, err := pkgauth.NewTokenIssuer(config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "cartfold-test",
		ExpirationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("building token issuer: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, stubTx{}, stubHasher{}, issuer, sessions, logg)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc, repo, sessions
}

func customerInput() RegisterInput {
	return RegisterInput{
		Email:     "Jane@Example.com",
		Password:  "supersecret",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      "customer",
	}
}

func TestRegisterCustomer(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t)
	dto, err := svc.Register(context.Background(), customerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if dto.Email != "jane@example.com" {
		t.Fatalf("email not normalized: %s", dto.Email)
	}
	if dto.Role != "customer" {
		t.Fatalf("unexpected role: %s", dto.Role)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one user created, got %d", len(repo.created))
	}
	if repo.created[0].PasswordHash != "hashed:supersecret" {
		t.Fatal("password must be stored hashed")
	}
	if len(repo.profiles) != 0 {
		t.Fatal("customer must not get a vendor profile")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, customerInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, customerInput())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if typed.Message() != "email already registered" {
		t.Fatalf("unexpected message: %s", typed.Message())
	}
}

func TestRegisterVendorRequiresCompanyName(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	input := customerInput()
	input.Role = "vendor"

	_, err := svc.Register(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterVendorCreatesProfile(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t)
	input := customerInput()
	input.Role = "vendor"
	input.CompanyName = "Acme Supplies"

	dto, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if dto.CompanyName != "Acme Supplies" {
		t.Fatalf("company name missing from DTO: %+v", dto)
	}
	if len(repo.profiles) != 1 {
		t.Fatalf("expected one vendor profile, got %d", len(repo.profiles))
	}
	if repo.profiles[0].UserID != repo.created[0].ID {
		t.Fatal("profile must reference the created user")
	}
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, customerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if strings.Count(pair.AccessToken, ".") != 2 {
		t.Fatalf("access token is not a signed JWT: %s", pair.AccessToken)
	}
	if pair.User == nil || pair.User.Email != "jane@example.com" {
		t.Fatalf("expected user in response: %+v", pair.User)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected one live session, got %d", len(sessions.sessions))
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, customerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []LoginInput{
		{Email: "jane@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "supersecret"},
	}
	for _, input := range cases {
		_, err := svc.Login(ctx, input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %s, got %v", input.Email, err)
		}
		// Same message for both, so accounts cannot be probed.
		if typed.Message() != "invalid credentials" {
			t.Fatalf("unexpected message: %s", typed.Message())
		}
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, customerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}
	repo.byEmail["jane@example.com"].IsActive = false

	_, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "supersecret"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, customerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token must rotate")
	}

	// The consumed token cannot be replayed.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); pkgerrors.As(err) == nil {
		t.Fatal("expected replayed refresh to fail")
	}
}

func TestRefreshUnknownToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, err := svc.Refresh(context.Background(), "unknown-token")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, customerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatal("expected session revoked")
	}

	if err := svc.Logout(ctx, ""); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for empty token")
	}
}

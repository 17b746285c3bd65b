package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/auth"
	"github.com/spec-kit/labbook/internal/config"
	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/persistence"
	"github.com/spec-kit/labbook/internal/repository"
	apperrors "github.com/spec-kit/labbook/pkg/util/errorutil"
)

const setupLockKey = "labbook:lock:setup"

// AuthService coordinates registration and login flows.
type AuthService struct {
	users     repository.UserRepository
	locker    persistence.Locker
	tokenMgr  *auth.TokenManager
	passwords *auth.PasswordHasher
	logger    *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Locker   persistence.Locker
	Logger   *zap.Logger
}

// Session is the outcome of a successful login or registration.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:     deps.UserRepo,
		locker:    deps.Locker,
		tokenMgr:  auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		passwords: auth.NewPasswordHasher(cfg),
		logger:    logger,
	}
}

// Register creates a USER account and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password string) (*Session, error) {
	return s.createAccount(ctx, email, password, domain.RoleUser)
}

// SetupAdmin creates the first ADMIN account. It is refused once any admin
// exists.
func (s *AuthService) SetupAdmin(ctx context.Context, email, password string) (*Session, error) {
	if s.locker != nil {
		held, err := s.locker.AcquireLock(ctx, setupLockKey, 10*time.Second)
		switch {
		case errors.Is(err, persistence.ErrLockHeld):
			return nil, apperrors.NewConflict("admin setup already in progress", nil)
		case err != nil:
			s.logger.Warn("setup lock unavailable", zap.Error(err))
		default:
			defer func() { _ = held.Release(context.Background()) }()
		}
	}

	admins, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if admins > 0 {
		return nil, apperrors.NewForbidden("an admin account already exists")
	}
	return s.createAccount(ctx, email, password, domain.RoleAdmin)
}

// Login authenticates an account by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := s.passwords.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFound(err, "user", userID)
	}
	if err := s.passwords.Compare(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) createAccount(ctx context.Context, email, password string, role domain.Role) (*Session, error) {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", nil)
		}
		return nil, err
	}
	s.logger.Info("account created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

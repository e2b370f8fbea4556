package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// MinPasswordLength applies to passwords chosen on first login.
const MinPasswordLength = 8

// LoginResult is either a token pair or a request to change the initial password.
type LoginResult struct {
	Username              string
	RequirePasswordChange bool
	AccessToken           *domain.IssuedToken
	RefreshToken          *domain.IssuedToken
	Roles                 domain.Roles
}

// AuthService coordinates login, token refresh and identity resolution.
type AuthService struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
	tokens *auth.TokenIssuer
	logger *zap.Logger

	dummyOnce sync.Once
	dummy     string
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Users  repository.UserRepository
	Hasher auth.PasswordHasher
	Tokens *auth.TokenIssuer
	Logger *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(0)
	}
	return &AuthService{
		users:  deps.Users,
		hasher: hasher,
		tokens: deps.Tokens,
		logger: logger,
	}
}

// Login authenticates a user. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if user.FirstLogin {
		return &LoginResult{Username: user.Username, RequirePasswordChange: true}, nil
	}

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("username", user.Username))
	return &LoginResult{
		Username:     user.Username,
		AccessToken:  &access,
		RefreshToken: &refresh,
		Roles:        user.Roles,
	}, nil
}

// Refresh issues a new access token carrying the user's current roles. The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.IssuedToken, error) {
	claims, err := s.tokens.Validate(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			if subject, subErr := s.tokens.ExtractSubject(refreshToken); subErr == nil {
				s.logger.Info("refresh token expired", zap.String("username", subject))
			}
		}
		return domain.IssuedToken{}, err
	}

	user, found, err := s.users.FindByUsername(ctx, claims.Username())
	if err != nil {
		return domain.IssuedToken{}, err
	}
	// A deactivated account is treated as gone from the directory.
	if !found || !user.Enabled {
		return domain.IssuedToken{}, domain.ErrUserNotFound
	}
	return s.tokens.IssueAccess(user)
}

// ResolveIdentity returns the live profile behind an access token. Every
// failure is reported as ErrUnauthenticated wrapping the cause.
func (s *AuthService) ResolveIdentity(ctx context.Context, accessToken string) (*domain.Profile, error) {
	claims, err := s.tokens.Validate(accessToken, domain.TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	user, found, err := s.users.FindByUsername(ctx, claims.Username())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, domain.ErrUserNotFound)
	}
	return &domain.Profile{
		Username:   user.Username,
		Roles:      user.Roles,
		Enabled:    user.Enabled,
		FirstLogin: user.FirstLogin,
	}, nil
}

// ChangeInitialPassword replaces the password issued with the account and
// clears the first-login flag.
func (s *AuthService) ChangeInitialPassword(ctx context.Context, username, currentPassword, newPassword string) error {
	user, err := s.authenticate(ctx, username, currentPassword)
	if err != nil {
		return err
	}
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}
	if newPassword == currentPassword {
		return fmt.Errorf("%w: new password must differ from the current one", domain.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, false); err != nil {
		return err
	}
	s.logger.Info("initial password changed", zap.String("username", user.Username))
	return nil
}

// EnsureAdmin creates an enabled ADMIN account when username is unknown. The
// bootstrap password must be replaced on first login. An existing account is
// left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, found, err := s.users.FindByUsername(ctx, username); err != nil || found {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Roles:        domain.NewRoles(domain.RoleAdmin),
		Enabled:      true,
		FirstLogin:   true,
	}
	if err := s.users.Create(ctx, admin); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	s.logger.Info("bootstrap admin ensured", zap.String("username", username))
	return nil
}

// TokenIssuer exposes the issuer for middleware usage.
func (s *AuthService) TokenIssuer() *auth.TokenIssuer {
	return s.tokens
}

// authenticate checks credentials first so a deactivated account is only
// revealed to someone who knows its password.
func (s *AuthService) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, found, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !found {
		// Spend the same bcrypt work as a real comparison.
		_ = s.hasher.Compare(s.dummyHash(), password)
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, domain.ErrAccountDeactivated
	}
	return user, nil
}

// dummyHash is compared against when the username is unknown so both failure
// paths cost one bcrypt comparison at the configured cost.
func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("attendance-unknown-user")
		if err != nil {
			s.logger.Warn("dummy hash unavailable", zap.Error(err))
			return
		}
		s.dummy = hash
	})
	return s.dummy
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/repository"
)

const temporaryPasswordLength = 12

// AccountCreation is returned once to the admin who created the account.
// The temporary password is never stored in clear and must be changed on
// first login.
type AccountCreation struct {
	User              *domain.User
	TemporaryPassword string
}

// UserService lets administrators manage accounts.
type UserService struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
	logger *zap.Logger
}

// UserDependencies encapsulates requirements for the user service.
type UserDependencies struct {
	Users  repository.UserRepository
	Hasher auth.PasswordHasher
	Logger *zap.Logger
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(0)
	}
	return &UserService{users: deps.Users, hasher: hasher, logger: logger}
}

// CreateAccount creates an enabled account named after the local part of
// email, with a generated temporary password and the first-login flag set.
// An empty role defaults to USER.
func (s *UserService) CreateAccount(ctx context.Context, actor *domain.Principal, email, role string) (*AccountCreation, error) {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	username := strings.ToLower(email[:at])

	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = domain.RoleUser
	}

	password := newTemporaryPassword()
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        domain.NewRoles(role),
		Enabled:      true,
		FirstLogin:   true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrAccountExists
		}
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("username", user.Username),
		zap.String("role", role),
		zap.String("actor", actorName(actor)))
	return &AccountCreation{User: user, TemporaryPassword: password}, nil
}

// DeactivateUser disables login and token refresh for the account. An admin
// cannot deactivate their own account.
func (s *UserService) DeactivateUser(ctx context.Context, actor *domain.Principal, userID string) error {
	if actor != nil {
		self, found, err := s.users.FindByUsername(ctx, actor.Username)
		if err != nil {
			return err
		}
		if found && self.ID == userID {
			return fmt.Errorf("%w: cannot deactivate your own account", domain.ErrInvalidInput)
		}
	}
	return s.setEnabled(ctx, actor, userID, false)
}

// ReactivateUser re-enables a deactivated account.
func (s *UserService) ReactivateUser(ctx context.Context, actor *domain.Principal, userID string) error {
	return s.setEnabled(ctx, actor, userID, true)
}

// ListUsers returns active or deactivated accounts ordered by username.
func (s *UserService) ListUsers(ctx context.Context, active bool) ([]domain.User, error) {
	return s.users.ListByEnabled(ctx, active)
}

func (s *UserService) setEnabled(ctx context.Context, actor *domain.Principal, userID string, enabled bool) error {
	if err := s.users.SetEnabled(ctx, userID, enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrAccountNotFound
		}
		return err
	}
	s.logger.Info("account activation changed",
		zap.String("user_id", userID),
		zap.Bool("enabled", enabled),
		zap.String("actor", actorName(actor)))
	return nil
}

// newTemporaryPassword draws from a random UUID, which is generated from
// crypto/rand.
func newTemporaryPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:temporaryPasswordLength]
}

func actorName(actor *domain.Principal) string {
	if actor == nil {
		return ""
	}
	return actor.Username
}

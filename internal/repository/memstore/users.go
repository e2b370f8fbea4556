// Package memstore holds in-memory repositories used when no database is
// configured and by service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// Users is an in-memory user directory.
type Users struct {
	mu     sync.RWMutex
	byName map[string]domain.User
}

var _ repository.UserRepository = (*Users)(nil)

// NewUsers returns an empty directory.
func NewUsers() *Users {
	return &Users{byName: make(map[string]domain.User)}
}

func (s *Users) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[user.Username]; ok {
		return repository.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	user.Roles = domain.NewRoles(user.Roles...)
	s.byName[user.Username] = copyUser(*user)
	return nil
}

func (s *Users) UpdatePassword(_ context.Context, userID, passwordHash string, firstLogin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, user := range s.byName {
		if user.ID != userID {
			continue
		}
		user.PasswordHash = passwordHash
		user.FirstLogin = firstLogin
		user.UpdatedAt = time.Now().UTC()
		s.byName[name] = user
		return nil
	}
	return repository.ErrNotFound
}

func (s *Users) FindByUsername(_ context.Context, username string) (*domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byName[username]
	if !ok {
		return nil, false, nil
	}
	out := copyUser(user)
	return &out, true, nil
}

// SetRoles replaces the roles of an existing user.
func (s *Users) SetRoles(username string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byName[username]; ok {
		user.Roles = domain.NewRoles(roles...)
		s.byName[username] = user
	}
}

func (s *Users) SetEnabled(_ context.Context, userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, user := range s.byName {
		if user.ID != userID {
			continue
		}
		user.Enabled = enabled
		user.UpdatedAt = time.Now().UTC()
		s.byName[name] = user
		return nil
	}
	return repository.ErrNotFound
}

func (s *Users) ListByEnabled(_ context.Context, enabled bool) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []domain.User{}
	for _, user := range s.byName {
		if user.Enabled == enabled {
			users = append(users, copyUser(user))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func copyUser(u domain.User) domain.User {
	u.Roles = append(domain.Roles(nil), u.Roles...)
	return u
}

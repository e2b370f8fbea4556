package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/domain"
)

func newUserService(f *fixture) *UserService {
	return NewUserService(UserDependencies{Users: f.users, Hasher: f.hasher})
}

func TestUserService_CreateAccountRequiresPasswordChange(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	users := newUserService(f)
	admin := principal("root", domain.RoleAdmin)

	created, err := users.CreateAccount(ctx, admin, "Dana.Scully@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "dana.scully", created.User.Username)
	assert.Equal(t, domain.Roles{domain.RoleUser}, created.User.Roles)
	assert.Len(t, created.TemporaryPassword, temporaryPasswordLength)
	assert.True(t, created.User.FirstLogin)
	assert.NotEqual(t, created.TemporaryPassword, created.User.PasswordHash)

	result, err := f.auth.Login(ctx, "dana.scully", created.TemporaryPassword)
	require.NoError(t, err)
	assert.True(t, result.RequirePasswordChange)

	_, err = users.CreateAccount(ctx, admin, "dana.scully@elsewhere.org", "admin")
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	for _, email := range []string{"", "no-at-sign", "@example.com", "trailing@"} {
		_, err = users.CreateAccount(ctx, admin, email, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, email)
	}

	second, err := users.CreateAccount(ctx, admin, "fox@example.com", "admin")
	require.NoError(t, err)
	assert.True(t, second.User.Roles.Has(domain.RoleAdmin))
	assert.NotEqual(t, created.TemporaryPassword, second.TemporaryPassword)
}

func TestUserService_DeactivateBlocksLoginAndRefresh(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	users := newUserService(f)
	f.addUser(t, "root", "admin-secret", domain.RoleAdmin)
	alice := f.addUser(t, "alice", "correct-horse", domain.RoleUser)
	admin := principal("root", domain.RoleAdmin)

	session, err := f.auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, users.DeactivateUser(ctx, admin, alice.ID))

	_, err = f.auth.Login(ctx, "alice", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrAccountDeactivated)
	_, err = f.auth.Refresh(ctx, session.RefreshToken.Value)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	inactive, err := users.ListUsers(ctx, false)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "alice", inactive[0].Username)

	active, err := users.ListUsers(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "root", active[0].Username)

	require.NoError(t, users.ReactivateUser(ctx, admin, alice.ID))
	_, err = f.auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, session.RefreshToken.Value)
	require.NoError(t, err)
}

func TestUserService_DeactivateFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	users := newUserService(f)
	root := f.addUser(t, "root", "admin-secret", domain.RoleAdmin)
	admin := principal("root", domain.RoleAdmin)

	assert.ErrorIs(t, users.DeactivateUser(ctx, admin, root.ID), domain.ErrInvalidInput)
	assert.ErrorIs(t, users.DeactivateUser(ctx, admin, "missing"), domain.ErrAccountNotFound)
	assert.ErrorIs(t, users.ReactivateUser(ctx, admin, "missing"), domain.ErrAccountNotFound)
}

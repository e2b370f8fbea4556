package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
)

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice", "correct-horse", "USER", domain.RoleAdmin)

	result, err := f.auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.False(t, result.RequirePasswordChange)
	require.NotNil(t, result.AccessToken)
	require.NotNil(t, result.RefreshToken)
	assert.Equal(t, domain.Roles{domain.RoleAdmin, "USER"}, result.Roles)

	claims, err := f.issuer.Validate(result.AccessToken.Value, domain.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleAdmin, "USER"}, claims.Roles)

	refresh, err := f.issuer.Validate(result.RefreshToken.Value, domain.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Empty(t, refresh.Roles)
}

func TestAuthService_LoginFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice", "correct-horse")
	mallory := f.addUser(t, "mallory", "correct-horse")
	require.NoError(t, f.users.SetEnabled(ctx, mallory.ID, false))

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"unknown user", "nobody", "correct-horse", domain.ErrInvalidCredentials},
		{"wrong password", "alice", "battery-staple", domain.ErrInvalidCredentials},
		{"deactivated with wrong password", "mallory", "battery-staple", domain.ErrInvalidCredentials},
		{"deactivated", "mallory", "correct-horse", domain.ErrAccountDeactivated},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthService_FirstLoginRequiresPasswordChange(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	hash, err := f.hasher.Hash("temporary")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &domain.User{Username: "newbie", PasswordHash: hash, Enabled: true, FirstLogin: true}))

	result, err := f.auth.Login(ctx, "newbie", "temporary")
	require.NoError(t, err)
	assert.True(t, result.RequirePasswordChange)
	assert.Nil(t, result.AccessToken)
	assert.Nil(t, result.RefreshToken)

	assert.ErrorIs(t, f.auth.ChangeInitialPassword(ctx, "newbie", "wrong", "long-enough-pw"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, f.auth.ChangeInitialPassword(ctx, "newbie", "temporary", "short"), domain.ErrInvalidInput)
	assert.ErrorIs(t, f.auth.ChangeInitialPassword(ctx, "newbie", "temporary", "temporary"), domain.ErrInvalidInput)
	require.NoError(t, f.auth.ChangeInitialPassword(ctx, "newbie", "temporary", "long-enough-pw"))

	result, err = f.auth.Login(ctx, "newbie", "long-enough-pw")
	require.NoError(t, err)
	assert.False(t, result.RequirePasswordChange)
	assert.NotNil(t, result.AccessToken)
}

func TestAuthService_RefreshUsesCurrentRoles(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice", "correct-horse", "USER")

	result, err := f.auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	f.users.SetRoles("alice", "USER", domain.RoleAdmin)
	f.clock.Advance(time.Hour)

	access, err := f.auth.Refresh(ctx, result.RefreshToken.Value)
	require.NoError(t, err)
	claims, err := f.issuer.Validate(access.Value, domain.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleAdmin, "USER"}, claims.Roles)

	_, err = f.issuer.Validate(result.AccessToken.Value, domain.TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrTokenExpired, "the old access token keeps its own expiry")
}

func TestAuthService_RefreshFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "correct-horse")

	access, err := f.issuer.IssueAccess(alice)
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, access.Value)
	assert.ErrorIs(t, err, domain.ErrWrongTokenType)

	_, err = f.auth.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrTokenMalformed)

	ghost, err := f.issuer.IssueRefresh(&domain.User{Username: "ghost"})
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, ghost.Value)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	refresh, err := f.issuer.IssueRefresh(alice)
	require.NoError(t, err)

	require.NoError(t, f.users.SetEnabled(ctx, alice.ID, false))
	_, err = f.auth.Refresh(ctx, refresh.Value)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NotErrorIs(t, err, domain.ErrAccountDeactivated)
	require.NoError(t, f.users.SetEnabled(ctx, alice.ID, true))

	_, err = f.auth.Refresh(ctx, refresh.Value)
	require.NoError(t, err)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.auth.Refresh(ctx, refresh.Value)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthService_ResolveIdentity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "correct-horse", "USER")

	access, err := f.issuer.IssueAccess(alice)
	require.NoError(t, err)

	f.users.SetRoles("alice", "USER", "AUDITOR")
	profile, err := f.auth.ResolveIdentity(ctx, access.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, domain.Roles{"AUDITOR", "USER"}, profile.Roles)
	assert.True(t, profile.Enabled)
	assert.False(t, profile.FirstLogin)

	refresh, err := f.issuer.IssueRefresh(alice)
	require.NoError(t, err)
	_, err = f.auth.ResolveIdentity(ctx, refresh.Value)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.ErrorIs(t, err, domain.ErrWrongTokenType)

	ghost, err := f.issuer.IssueAccess(&domain.User{Username: "ghost"})
	require.NoError(t, err)
	_, err = f.auth.ResolveIdentity(ctx, ghost.Value)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.EnsureAdmin(ctx, "root", "bootstrap-pw"))
	require.NoError(t, f.auth.EnsureAdmin(ctx, "root", "different-pw"))

	root, found, err := f.users.FindByUsername(ctx, "root")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, root.Enabled)
	assert.True(t, root.FirstLogin)
	assert.True(t, root.Roles.Has(domain.RoleAdmin))

	result, err := f.auth.Login(ctx, "root", "bootstrap-pw")
	require.NoError(t, err)
	assert.True(t, result.RequirePasswordChange)
	assert.Nil(t, result.AccessToken)

	require.NoError(t, f.auth.ChangeInitialPassword(ctx, "root", "bootstrap-pw", "rotated-admin-pw"))
	result, err = f.auth.Login(ctx, "root", "rotated-admin-pw")
	require.NoError(t, err)
	assert.False(t, result.RequirePasswordChange)
	require.NotNil(t, result.AccessToken)
	assert.True(t, result.Roles.Has(domain.RoleAdmin))

	require.NoError(t, f.auth.EnsureAdmin(ctx, "", ""))
}

type countingHasher struct {
	auth.PasswordHasher
	compares atomic.Int32
}

func (h *countingHasher) Compare(hashed, plain string) error {
	h.compares.Add(1)
	return h.PasswordHasher.Compare(hashed, plain)
}

func TestAuthService_UnknownUserStillComparesPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice", "correct-horse")

	hasher := &countingHasher{PasswordHasher: f.hasher}
	svc := NewAuthService(AuthDependencies{Users: f.users, Hasher: hasher, Tokens: f.issuer})

	_, err := svc.Login(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.EqualValues(t, 1, hasher.compares.Load())

	_, err = svc.Login(ctx, "alice", "battery-staple")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.EqualValues(t, 2, hasher.compares.Load())
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/domain"
)

var userRowColumns = []string{
	"id", "username", "email", "password_hash", "enabled", "first_login", "roles", "created_at", "updated_at",
}

func TestUserRepository_CreateCommitsUserAndRoles(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("root", "", "hash", true, true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("u-1", testNow, testNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).
		WithArgs("u-1", domain.RoleAdmin).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	user := &domain.User{
		Username:     "root",
		PasswordHash: "hash",
		Roles:        domain.NewRoles(domain.RoleAdmin),
		Enabled:      true,
		FirstLogin:   true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, "u-1", user.ID)
}

func TestUserRepository_CreateRollsBackWhenRoleInsertFails(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("root", "", "hash", true, false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("u-1", testNow, testNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).
		WithArgs("u-1", domain.RoleAdmin).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &domain.User{
		Username:     "root",
		PasswordHash: "hash",
		Roles:        domain.NewRoles(domain.RoleAdmin),
		Enabled:      true,
	})
	assert.EqualError(t, err, "connection reset")
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "", "hash", true, false).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &domain.User{Username: "alice", PasswordHash: "hash", Enabled: true})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_SetEnabled(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET enabled=$1")).
		WithArgs(false, "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SetEnabled(context.Background(), "u-1", false))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET enabled=$1")).
		WithArgs(true, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.SetEnabled(context.Background(), "missing", true), ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET enabled=$1")).
		WithArgs(true, "not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02"})
	assert.ErrorIs(t, repo.SetEnabled(context.Background(), "not-a-uuid", true), ErrNotFound)
}

func TestUserRepository_ListByEnabled(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.enabled=$1")).
		WithArgs(false).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow("u-2", "bob", "bob@example.com", "h", false, false, []string{"USER"}, testNow, testNow).
			AddRow("u-3", "carol", "", "h", false, true, []string{}, testNow, testNow))

	users, err := repo.ListByEnabled(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username)
	assert.Equal(t, domain.Roles{"USER"}, users[0].Roles)
	assert.True(t, users[1].FirstLogin)
}

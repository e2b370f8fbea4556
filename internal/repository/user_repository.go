package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// UserRepository is the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, firstLogin bool) error
	SetEnabled(ctx context.Context, userID string, enabled bool) error
	FindByUsername(ctx context.Context, username string) (*domain.User, bool, error)
	ListByEnabled(ctx context.Context, enabled bool) ([]domain.User, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `
        u.id, u.username, u.email, u.password_hash, u.enabled, u.first_login,
        COALESCE(array_agg(r.role_name) FILTER (WHERE r.role_name IS NOT NULL), '{}'),
        u.created_at, u.updated_at`

// Create inserts the user and its roles in one transaction.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const insertUser = `
        INSERT INTO users (username, email, password_hash, enabled, first_login)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	const insertRole = `
        INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, insertUser,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Enabled,
		user.FirstLogin,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	for _, role := range user.Roles {
		if _, err := tx.Exec(ctx, insertRole, user.ID, role); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, firstLogin bool) error {
	const query = `
        UPDATE users SET password_hash=$1, first_login=$2, updated_at=NOW()
        WHERE id=$3`

	cmd, err := r.db.Exec(ctx, query, passwordHash, firstLogin, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	const query = `UPDATE users SET enabled=$1, updated_at=NOW() WHERE id=$2`

	cmd, err := r.db.Exec(ctx, query, enabled, userID)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, bool, error) {
	query := `SELECT` + userColumns + `
        FROM users u
        LEFT JOIN user_roles r ON r.user_id = u.id
        WHERE u.username=$1
        GROUP BY u.id`

	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// ListByEnabled returns active or deactivated accounts ordered by username.
func (r *userRepository) ListByEnabled(ctx context.Context, enabled bool) ([]domain.User, error) {
	query := `SELECT` + userColumns + `
        FROM users u
        LEFT JOIN user_roles r ON r.user_id = u.id
        WHERE u.enabled=$1
        GROUP BY u.id
        ORDER BY u.username`

	rows, err := r.db.Query(ctx, query, enabled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user  domain.User
		roles []string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Enabled,
		&user.FirstLogin,
		&roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Roles = domain.NewRoles(roles...)
	return &user, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// AttendanceTokenRepository stores ephemeral attendance tokens.
type AttendanceTokenRepository interface {
	Create(ctx context.Context, token *domain.AttendanceToken) error
	FindUnusedByValue(ctx context.Context, value string) (*domain.AttendanceToken, bool, error)
	// MarkUsed flips used from false to true and reports whether this call did it.
	MarkUsed(ctx context.Context, token *domain.AttendanceToken) (bool, error)
	// DeleteExpiredBefore removes every token with expires_at < t, used or not.
	DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error)
}

type attendanceTokenRepository struct {
	db DBTX
}

// NewAttendanceTokenRepository constructs repository.
func NewAttendanceTokenRepository(db DBTX) AttendanceTokenRepository {
	return &attendanceTokenRepository{db: db}
}

func (r *attendanceTokenRepository) Create(ctx context.Context, token *domain.AttendanceToken) error {
	const query = `
        INSERT INTO attendance_tokens (value, user_id, issued_at, expires_at, used)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		token.Value,
		token.Owner.ID,
		token.IssuedAt,
		token.ExpiresAt,
		token.Used,
	).Scan(&token.ID)
}

func (r *attendanceTokenRepository) FindUnusedByValue(ctx context.Context, value string) (*domain.AttendanceToken, bool, error) {
	const query = `
        SELECT t.id, t.value, t.user_id, u.username, t.issued_at, t.expires_at, t.used
        FROM attendance_tokens t JOIN users u ON u.id = t.user_id
        WHERE t.value=$1 AND t.used=FALSE
        ORDER BY t.issued_at DESC
        LIMIT 1`
	var token domain.AttendanceToken
	if err := r.db.QueryRow(ctx, query, value).Scan(
		&token.ID,
		&token.Value,
		&token.Owner.ID,
		&token.Owner.Username,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.Used,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &token, true, nil
}

func (r *attendanceTokenRepository) MarkUsed(ctx context.Context, token *domain.AttendanceToken) (bool, error) {
	const query = `
        UPDATE attendance_tokens SET used=TRUE
        WHERE id=$1 AND used=FALSE`
	cmd, err := r.db.Exec(ctx, query, token.ID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *attendanceTokenRepository) DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	const query = `DELETE FROM attendance_tokens WHERE expires_at < $1`
	cmd, err := r.db.Exec(ctx, query, t)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

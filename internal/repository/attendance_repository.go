package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// AttendanceRepository persists one attendance record per user and day.
type AttendanceRepository interface {
	FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*domain.AttendanceRecord, bool, error)
	ExistsByUserAndDate(ctx context.Context, userID string, date time.Time) (bool, error)
	// Save inserts a record without an ID, or moves an existing CHECKED_IN
	// record forward. Returns ErrDuplicate when a record already exists for the
	// day and ErrStaleWrite when the stored record is no longer CHECKED_IN.
	Save(ctx context.Context, record *domain.AttendanceRecord) error
	// ListByUser returns records newest date first.
	ListByUser(ctx context.Context, userID string) ([]domain.AttendanceRecord, error)
}

type attendanceRepository struct {
	db DBTX
}

// NewAttendanceRepository returns a Postgres-backed implementation.
func NewAttendanceRepository(db DBTX) AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceColumns = `
        a.id, a.user_id, u.username, a.attendance_date, a.check_in_time, a.check_out_time,
        a.status, a.created_at, a.updated_at`

func (r *attendanceRepository) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*domain.AttendanceRecord, bool, error) {
	query := `SELECT` + attendanceColumns + `
        FROM attendance_records a JOIN users u ON u.id = a.user_id
        WHERE a.user_id=$1 AND a.attendance_date=$2`

	record, err := scanAttendance(r.db.QueryRow(ctx, query, userID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return record, true, nil
}

func (r *attendanceRepository) ExistsByUserAndDate(ctx context.Context, userID string, date time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM attendance_records WHERE user_id=$1 AND attendance_date=$2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, date).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *attendanceRepository) Save(ctx context.Context, record *domain.AttendanceRecord) error {
	if record.ID == "" {
		return r.insert(ctx, record)
	}

	const query = `
        UPDATE attendance_records SET check_out_time=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND status='CHECKED_IN' AND check_out_time IS NULL
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		record.CheckOutTime,
		record.Status,
		record.ID,
	).Scan(&record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleWrite
	}
	return err
}

func (r *attendanceRepository) insert(ctx context.Context, record *domain.AttendanceRecord) error {
	const query = `
        INSERT INTO attendance_records (user_id, attendance_date, check_in_time, check_out_time, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		record.User.ID,
		record.Date,
		record.CheckInTime,
		record.CheckOutTime,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *attendanceRepository) ListByUser(ctx context.Context, userID string) ([]domain.AttendanceRecord, error) {
	query := `SELECT` + attendanceColumns + `
        FROM attendance_records a JOIN users u ON u.id = a.user_id
        WHERE a.user_id=$1
        ORDER BY a.attendance_date DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.AttendanceRecord{}
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanAttendance(row pgx.Row) (*domain.AttendanceRecord, error) {
	var record domain.AttendanceRecord
	if err := row.Scan(
		&record.ID,
		&record.User.ID,
		&record.User.Username,
		&record.Date,
		&record.CheckInTime,
		&record.CheckOutTime,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

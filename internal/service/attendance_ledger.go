package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// Ledger drives the daily record through Absent, CHECKED_IN and CHECKED_OUT.
// CHECKED_OUT is terminal.
type Ledger struct {
	records repository.AttendanceRepository
}

func NewLedger(records repository.AttendanceRepository) *Ledger {
	return &Ledger{records: records}
}

// RecordScan applies one scan for user on date at now.
func (l *Ledger) RecordScan(ctx context.Context, user domain.UserRef, date, now time.Time) (*domain.AttendanceRecord, error) {
	// A concurrent first scan can win the insert; the second attempt then
	// sees its record and checks out instead.
	for attempt := 0; attempt < 2; attempt++ {
		record, found, err := l.records.FindByUserAndDate(ctx, user.ID, date)
		if err != nil {
			return nil, err
		}

		if !found {
			checkIn := now
			record = &domain.AttendanceRecord{
				User:        user,
				Date:        date,
				CheckInTime: &checkIn,
				Status:      domain.AttendanceCheckedIn,
			}
			err := l.records.Save(ctx, record)
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			if err != nil {
				return nil, err
			}
			return record, nil
		}

		if record.Completed() || record.Status != domain.AttendanceCheckedIn {
			return nil, domain.ErrAttendanceAlreadyCompleted
		}

		checkOut := now
		record.CheckOutTime = &checkOut
		record.Status = domain.AttendanceCheckedOut
		if err := l.records.Save(ctx, record); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return nil, domain.ErrAttendanceAlreadyCompleted
			}
			return nil, err
		}
		return record, nil
	}
	return nil, domain.ErrAttendanceAlreadyCompleted
}

// ListForUser returns the user's records, newest date first.
func (l *Ledger) ListForUser(ctx context.Context, user domain.UserRef) ([]domain.AttendanceRecord, error) {
	return l.records.ListByUser(ctx, user.ID)
}

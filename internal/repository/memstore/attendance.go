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

type dayKey struct {
	userID string
	date   time.Time
}

// Attendance keeps one record per user and day.
type Attendance struct {
	mu      sync.RWMutex
	records map[dayKey]domain.AttendanceRecord
}

var _ repository.AttendanceRepository = (*Attendance)(nil)

func NewAttendance() *Attendance {
	return &Attendance{records: make(map[dayKey]domain.AttendanceRecord)}
}

func keyOf(userID string, date time.Time) dayKey {
	return dayKey{userID: userID, date: date.UTC()}
}

func (s *Attendance) FindByUserAndDate(_ context.Context, userID string, date time.Time) (*domain.AttendanceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[keyOf(userID, date)]
	if !ok {
		return nil, false, nil
	}
	out := copyRecord(record)
	return &out, true, nil
}

func (s *Attendance) ExistsByUserAndDate(_ context.Context, userID string, date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[keyOf(userID, date)]
	return ok, nil
}

func (s *Attendance) Save(_ context.Context, record *domain.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(record.User.ID, record.Date)
	now := time.Now().UTC()

	if record.ID == "" {
		if _, ok := s.records[key]; ok {
			return repository.ErrDuplicate
		}
		record.ID = uuid.NewString()
		record.CreatedAt, record.UpdatedAt = now, now
		s.records[key] = copyRecord(*record)
		return nil
	}

	stored, ok := s.records[key]
	if !ok || stored.ID != record.ID || stored.Status != domain.AttendanceCheckedIn || stored.CheckOutTime != nil {
		return repository.ErrStaleWrite
	}
	stored.CheckOutTime = copyTime(record.CheckOutTime)
	stored.Status = record.Status
	stored.UpdatedAt = now
	s.records[key] = stored
	record.UpdatedAt = now
	return nil
}

func (s *Attendance) ListByUser(_ context.Context, userID string) ([]domain.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []domain.AttendanceRecord{}
	for key, record := range s.records {
		if key.userID == userID {
			records = append(records, copyRecord(record))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	return records, nil
}

func copyRecord(r domain.AttendanceRecord) domain.AttendanceRecord {
	r.CheckInTime = copyTime(r.CheckInTime)
	r.CheckOutTime = copyTime(r.CheckOutTime)
	return r
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

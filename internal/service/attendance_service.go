package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/clock"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/observability"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// AttendanceService pairs token consumption with the ledger transition.
type AttendanceService struct {
	users      repository.UserRepository
	registry   *TokenRegistry
	ledger     *Ledger
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      clock.Clock
	loc        *time.Location
}

// AttendanceDependencies encapsulates collaborators for the attendance service.
type AttendanceDependencies struct {
	Users      repository.UserRepository
	Registry   *TokenRegistry
	Ledger     *Ledger
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      clock.Clock
	Location   *time.Location
}

// NewAttendanceService builds the service.
func NewAttendanceService(deps AttendanceDependencies) *AttendanceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{
		users:      deps.Users,
		registry:   deps.Registry,
		ledger:     deps.Ledger,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		clock:      clk,
		loc:        loc,
	}
}

// RegisterToken stores value as the actor's attendance token for today.
func (s *AttendanceService) RegisterToken(ctx context.Context, actor *domain.Principal, value string) (*domain.AttendanceToken, error) {
	user, err := s.lookup(ctx, actor)
	if err != nil {
		return nil, err
	}

	token, err := s.registry.Register(ctx, user.Ref(), value)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTokenRegistered()
	s.publish(ctx, events.EventAttendanceTokenRegistered, user.Username, actor.Username,
		events.TokenRegisteredPayload{ExpiresAt: token.ExpiresAt})
	return token, nil
}

// MarkAttendance consumes value and records a scan for the token owner.
// Admin privilege is enforced by the route, not here.
func (s *AttendanceService) MarkAttendance(ctx context.Context, scanner *domain.Principal, value string) (*domain.AttendanceRecord, error) {
	scannerName := ""
	if scanner != nil {
		scannerName = scanner.Username
	}

	token, err := s.registry.Consume(ctx, value)
	if err != nil {
		s.reject(ctx, "", scannerName, err, false)
		return nil, err
	}

	now := s.clock.Now()
	record, err := s.ledger.RecordScan(ctx, token.Owner, domain.DateOf(now, s.loc), now)
	if err != nil {
		// The token is spent and cannot be replayed; report, do not retry.
		s.logger.Warn("attendance token consumed but scan not recorded",
			zap.String("username", token.Owner.Username),
			zap.String("scanner", scannerName),
			zap.Error(err))
		s.reject(ctx, token.Owner.Username, scannerName, err, true)
		return nil, err
	}

	eventType := events.EventAttendanceCheckedIn
	outcome := observability.OutcomeCheckedIn
	if record.Status == domain.AttendanceCheckedOut {
		eventType = events.EventAttendanceCheckedOut
		outcome = observability.OutcomeCheckedOut
	}
	s.metrics.RecordAttendanceMark(outcome)
	s.logger.Info("attendance marked",
		zap.String("username", record.User.Username),
		zap.String("record_id", record.ID),
		zap.String("status", string(record.Status)),
		zap.String("scanner", scannerName))
	s.publish(ctx, eventType, record.User.Username, scannerName, events.AttendanceMarkedPayload{
		RecordID:     record.ID,
		Date:         record.Date.Format(time.DateOnly),
		Status:       record.Status,
		CheckInTime:  record.CheckInTime,
		CheckOutTime: record.CheckOutTime,
	})
	return record, nil
}

// MyAttendance lists the actor's records, newest date first.
func (s *AttendanceService) MyAttendance(ctx context.Context, actor *domain.Principal) ([]domain.AttendanceRecord, error) {
	user, err := s.lookup(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.ledger.ListForUser(ctx, user.Ref())
}

func (s *AttendanceService) lookup(ctx context.Context, actor *domain.Principal) (*domain.User, error) {
	if actor == nil || actor.Username == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, found, err := s.users.FindByUsername(ctx, actor.Username)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *AttendanceService) reject(ctx context.Context, owner, scanner string, cause error, consumed bool) {
	s.metrics.RecordAttendanceMark(observability.OutcomeRejected)
	s.publish(ctx, events.EventAttendanceScanRejected, owner, scanner, events.ScanRejectedPayload{
		Reason:        rejectReason(cause),
		TokenConsumed: consumed,
	})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenInvalidOrUsed):
		return "invalid_or_used"
	case errors.Is(err, domain.ErrAttendanceTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrAttendanceAlreadyCompleted):
		return "already_completed"
	default:
		return "error"
	}
}

func (s *AttendanceService) publish(ctx context.Context, eventType events.EventType, subject, actor string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Actor:     events.Actor{Username: actor},
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish attendance event failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

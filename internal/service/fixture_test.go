package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/clock"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/observability"
	"github.com/spec-kit/attendance-service/internal/repository/memstore"
)

var testStart = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	clock      *clock.Manual
	users      *memstore.Users
	records    *memstore.Attendance
	tokens     *memstore.Tokens
	issuer     *auth.TokenIssuer
	hasher     auth.PasswordHasher
	registry   *TokenRegistry
	ledger     *Ledger
	attendance *AttendanceService
	auth       *AuthService
	recorded   *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:    clock.NewManual(testStart),
		users:    memstore.NewUsers(),
		records:  memstore.NewAttendance(),
		tokens:   memstore.NewTokens(),
		hasher:   auth.NewBcryptHasher(4),
		recorded: &eventRecorder{},
	}
	f.issuer = auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Secret:     "service-test-secret",
		Issuer:     "attendance-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, f.clock)

	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventAttendanceTokenRegistered,
		events.EventAttendanceCheckedIn,
		events.EventAttendanceCheckedOut,
		events.EventAttendanceScanRejected,
	} {
		dispatcher.Subscribe(et, f.recorded.handle)
	}

	f.registry = NewTokenRegistry(f.tokens, f.records, f.clock, DefaultAttendanceTokenTTL, time.UTC)
	f.ledger = NewLedger(f.records)
	f.attendance = NewAttendanceService(AttendanceDependencies{
		Users:      f.users,
		Registry:   f.registry,
		Ledger:     f.ledger,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Clock:      f.clock,
		Location:   time.UTC,
	})
	f.auth = NewAuthService(AuthDependencies{
		Users:  f.users,
		Hasher: f.hasher,
		Tokens: f.issuer,
	})
	return f
}

func (f *fixture) addUser(t *testing.T, username, password string, roles ...string) *domain.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Roles:        domain.NewRoles(roles...),
		Enabled:      true,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func principal(username string, roles ...string) *domain.Principal {
	return &domain.Principal{Username: username, Roles: domain.NewRoles(roles...)}
}

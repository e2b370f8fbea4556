package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/attendance-service/internal/clock"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// DefaultAttendanceTokenTTL is how long a registered token can be scanned.
const DefaultAttendanceTokenTTL = 5 * time.Minute

// TokenRegistry owns attendance tokens from registration until they are
// consumed or swept.
type TokenRegistry struct {
	tokens  repository.AttendanceTokenRepository
	records repository.AttendanceRepository
	clock   clock.Clock
	ttl     time.Duration
	loc     *time.Location
}

// NewTokenRegistry builds a registry. Zero ttl uses DefaultAttendanceTokenTTL.
func NewTokenRegistry(tokens repository.AttendanceTokenRepository, records repository.AttendanceRepository, clk clock.Clock, ttl time.Duration, loc *time.Location) *TokenRegistry {
	if ttl <= 0 {
		ttl = DefaultAttendanceTokenTTL
	}
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TokenRegistry{tokens: tokens, records: records, clock: clk, ttl: ttl, loc: loc}
}

// Register stores a fresh token for owner. Any attendance record for the
// owner's current day blocks registration, including a CHECKED_IN one.
func (r *TokenRegistry) Register(ctx context.Context, owner domain.UserRef, value string) (*domain.AttendanceToken, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: token value is required", domain.ErrInvalidInput)
	}

	now := r.clock.Now()
	exists, err := r.records.ExistsByUserAndDate(ctx, owner.ID, domain.DateOf(now, r.loc))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAttendanceAlreadyMarked
	}

	token := &domain.AttendanceToken{
		Value:     value,
		Owner:     owner,
		IssuedAt:  now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := r.tokens.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Consume spends an unused, unexpired token. Only one concurrent caller
// per value succeeds; the rest get ErrTokenInvalidOrUsed. An expired token
// is left in place for the sweeper.
func (r *TokenRegistry) Consume(ctx context.Context, value string) (*domain.AttendanceToken, error) {
	token, found, err := r.tokens.FindUnusedByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrTokenInvalidOrUsed
	}
	if token.ExpiredAt(r.clock.Now()) {
		return nil, domain.ErrAttendanceTokenExpired
	}

	marked, err := r.tokens.MarkUsed(ctx, token)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, domain.ErrTokenInvalidOrUsed
	}
	token.Used = true
	return token, nil
}

// Sweep deletes every token that expired before now, used or not.
func (r *TokenRegistry) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return r.tokens.DeleteExpiredBefore(ctx, now)
}

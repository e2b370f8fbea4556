package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/domain"
)

func TestTokenRegistry_ConsumeOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "secret-pw", "USER")

	token, err := f.registry.Register(ctx, alice.Ref(), "qr-1")
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(5*time.Minute), token.ExpiresAt)
	assert.False(t, token.Used)

	consumed, err := f.registry.Consume(ctx, "qr-1")
	require.NoError(t, err)
	assert.True(t, consumed.Used)
	assert.Equal(t, "alice", consumed.Owner.Username)

	_, err = f.registry.Consume(ctx, "qr-1")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrUsed)

	_, err = f.registry.Consume(ctx, "never-registered")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrUsed)
}

func TestTokenRegistry_ExpiryBoundary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "secret-pw")

	_, err := f.registry.Register(ctx, alice.Ref(), "on-time")
	require.NoError(t, err)
	_, err = f.registry.Register(ctx, alice.Ref(), "late")
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	_, err = f.registry.Consume(ctx, "on-time")
	require.NoError(t, err, "a token is valid at exactly its expiry")

	f.clock.Advance(time.Second)
	_, err = f.registry.Consume(ctx, "late")
	assert.ErrorIs(t, err, domain.ErrAttendanceTokenExpired)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	token, found, err := f.tokens.FindUnusedByValue(ctx, "late")
	require.NoError(t, err)
	require.True(t, found, "expired token stays until swept")
	assert.False(t, token.Used)
}

func TestTokenRegistry_RegisterBlockedByTodaysRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "secret-pw")

	_, err := f.ledger.RecordScan(ctx, alice.Ref(), domain.DateOf(testStart, time.UTC), testStart)
	require.NoError(t, err)

	_, err = f.registry.Register(ctx, alice.Ref(), "qr-2")
	assert.ErrorIs(t, err, domain.ErrAttendanceAlreadyMarked)
	assert.Zero(t, f.tokens.Len())

	f.clock.Advance(24 * time.Hour)
	_, err = f.registry.Register(ctx, alice.Ref(), "qr-3")
	assert.NoError(t, err, "a new day starts with no record")
}

func TestTokenRegistry_RegisterRequiresValue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.addUser(t, "alice", "secret-pw")

	_, err := f.registry.Register(context.Background(), alice.Ref(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTokenRegistry_ConcurrentConsumeExactlyOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "secret-pw")

	_, err := f.registry.Register(ctx, alice.Ref(), "stolen-qr")
	require.NoError(t, err)

	const scanners = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		failures []error
	)
	start := make(chan struct{})
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.registry.Consume(ctx, "stolen-qr")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, success)
	require.Len(t, failures, scanners-1)
	for _, err := range failures {
		assert.ErrorIs(t, err, domain.ErrTokenInvalidOrUsed)
	}
}

func TestTokenRegistry_Sweep(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", "secret-pw")

	_, err := f.registry.Register(ctx, alice.Ref(), "used")
	require.NoError(t, err)
	_, err = f.registry.Consume(ctx, "used")
	require.NoError(t, err)
	_, err = f.registry.Register(ctx, alice.Ref(), "unused")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.registry.Register(ctx, alice.Ref(), "fresh")
	require.NoError(t, err)

	removed, err := f.registry.Sweep(ctx, testStart.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, removed, "nothing is past expiry yet")

	removed, err = f.registry.Sweep(ctx, testStart.Add(5*time.Minute+time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	removed, err = f.registry.Sweep(ctx, testStart.Add(5*time.Minute+time.Second))
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = f.registry.Consume(ctx, "fresh")
	assert.NoError(t, err)
}

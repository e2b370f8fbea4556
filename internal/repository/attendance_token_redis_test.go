package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/domain"
)

func newRedisRepo(t *testing.T) (AttendanceTokenRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisAttendanceTokenRepository(client), mr
}

func redisToken(value string, issuedAt time.Time) *domain.AttendanceToken {
	return &domain.AttendanceToken{
		Value:     value,
		Owner:     domain.UserRef{ID: "u-1", Username: "alice"},
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(5 * time.Minute),
	}
}

func TestRedisTokenRepository_RoundTrip(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, redisToken("qr-1", testNow)))
	assert.True(t, mr.Exists("attendance:token:qr-1"))

	token, found, err := repo.FindUnusedByValue(ctx, "qr-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", token.Owner.Username)
	assert.True(t, token.ExpiresAt.Equal(testNow.Add(5*time.Minute)))

	ok, err := repo.MarkUsed(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkUsed(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err = repo.FindUnusedByValue(ctx, "qr-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisTokenRepository_MarkUsedMissing(t *testing.T) {
	repo, _ := newRedisRepo(t)

	ok, err := repo.MarkUsed(context.Background(), &domain.AttendanceToken{Value: "ghost"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTokenRepository_MarkUsedExactlyOnce(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	token := redisToken("qr-race", testNow)
	require.NoError(t, repo.Create(ctx, token))

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkUsed(ctx, token)
			if assert.NoError(t, err) && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, winners.Load())
}

func TestRedisTokenRepository_DeleteExpiredBefore(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, redisToken("old", testNow.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, redisToken("fresh", testNow)))

	n, err := repo.DeleteExpiredBefore(ctx, testNow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.False(t, mr.Exists("attendance:token:old"))
	assert.True(t, mr.Exists("attendance:token:fresh"))

	n, err = repo.DeleteExpiredBefore(ctx, testNow)
	require.NoError(t, err)
	assert.Zero(t, n)
}

package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/attendance-service/internal/domain"
)

const (
	redisTokenPrefix    = "attendance:token:"
	redisTokenExpiryKey = "attendance:tokens:expiry"
)

// markUsedScript flips used from "0" to "1" in one step. A missing hash
// reads as nil and is reported as not marked.
var markUsedScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'used') == '0' then
  redis.call('HSET', KEYS[1], 'used', '1')
  return 1
end
return 0
`)

type redisAttendanceTokenRepository struct {
	client redis.Cmdable
}

// NewRedisAttendanceTokenRepository stores each token as a hash keyed by its
// value, with a sorted set of values scored by expiry for sweeping.
func NewRedisAttendanceTokenRepository(client redis.Cmdable) AttendanceTokenRepository {
	return &redisAttendanceTokenRepository{client: client}
}

func redisTokenKey(value string) string {
	return redisTokenPrefix + value
}

func (r *redisAttendanceTokenRepository) Create(ctx context.Context, token *domain.AttendanceToken) error {
	if token.ID == "" {
		token.ID = token.Value
	}
	used := "0"
	if token.Used {
		used = "1"
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := redisTokenKey(token.Value)
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"id", token.ID,
			"owner_id", token.Owner.ID,
			"owner_username", token.Owner.Username,
			"issued_at", token.IssuedAt.UnixNano(),
			"expires_at", token.ExpiresAt.UnixNano(),
			"used", used,
		)
		pipe.ZAdd(ctx, redisTokenExpiryKey, redis.Z{
			Score:  float64(token.ExpiresAt.UnixMilli()),
			Member: token.Value,
		})
		return nil
	})
	return err
}

func (r *redisAttendanceTokenRepository) FindUnusedByValue(ctx context.Context, value string) (*domain.AttendanceToken, bool, error) {
	fields, err := r.client.HGetAll(ctx, redisTokenKey(value)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(fields) == 0 || fields["used"] != "0" {
		return nil, false, nil
	}

	issuedAt, err := strconv.ParseInt(fields["issued_at"], 10, 64)
	if err != nil {
		return nil, false, err
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, false, err
	}
	return &domain.AttendanceToken{
		ID:    fields["id"],
		Value: value,
		Owner: domain.UserRef{
			ID:       fields["owner_id"],
			Username: fields["owner_username"],
		},
		IssuedAt:  time.Unix(0, issuedAt).UTC(),
		ExpiresAt: time.Unix(0, expiresAt).UTC(),
	}, true, nil
}

func (r *redisAttendanceTokenRepository) MarkUsed(ctx context.Context, token *domain.AttendanceToken) (bool, error) {
	n, err := markUsedScript.Run(ctx, r.client, []string{redisTokenKey(token.Value)}).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return n == 1, nil
}

func (r *redisAttendanceTokenRepository) DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	values, err := r.client.ZRangeByScore(ctx, redisTokenExpiryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(t.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}

	dels := make([]*redis.IntCmd, 0, len(values))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, value := range values {
			dels = append(dels, pipe.Del(ctx, redisTokenKey(value)))
			pipe.ZRem(ctx, redisTokenExpiryKey, value)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, cmd := range dels {
		deleted += cmd.Val()
	}
	return deleted, nil
}

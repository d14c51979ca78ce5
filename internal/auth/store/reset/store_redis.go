package reset

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"sante/pkg/platform/sentinel"
)

const resetTokenKeyPrefix = "reset:jti:"

// RedisStore shares reset token state across instances. Keys expire on
// their own; GETDEL makes consumption atomic.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Issue(ctx context.Context, jti, userID string, ttl time.Duration) error {
	if err := validate(jti, ttl); err != nil {
		return err
	}
	return s.client.Set(ctx, resetTokenKeyPrefix+jti, userID, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, jti string) (string, error) {
	userID, err := s.client.GetDel(ctx, resetTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

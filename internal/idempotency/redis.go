package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store reserves request keys and remembers the result produced for them,
// so a retried request can be answered without doing the work twice.
type Store interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func lockKey(scope, key string) string  { return "idemp:" + scope + ":" + key }
func valueKey(scope, key string) string { return "idemp:map:" + scope + ":" + key }

func (s *RedisStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(scope, key), "1", s.ttl).Result()
}

// Release drops a lock whose work failed, letting the client retry.
func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, lockKey(scope, key)).Err()
}

func (s *RedisStore) Remember(ctx context.Context, scope, key, value string) error {
	return s.rdb.Set(ctx, valueKey(scope, key), value, s.ttl).Err()
}

func (s *RedisStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, valueKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

var _ Store = (*RedisStore)(nil)

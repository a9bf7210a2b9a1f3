package clientstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps client state in Redis so it survives restarts and is
// shared between instances.
type RedisStore struct{ C *redis.Client }

func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.C.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.C.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.C.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Take uses GETDEL so two concurrent readers can't both consume the value.
func (r *RedisStore) Take(ctx context.Context, key string) (string, error) {
	v, err := r.C.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis getdel %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *RedisStore) Close() error                   { return r.C.Close() }

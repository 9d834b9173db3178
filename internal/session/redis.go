package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps snapshots as Redis strings under a key prefix.
type RedisStore struct {
	rc     *redis.Client
	prefix string
}

// OpenRedis connects to addr. It returns nil when addr is empty.
func OpenRedis(addr, pass string, db int, prefix string) *RedisStore {
	if addr == "" {
		return nil
	}
	return NewRedisStore(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), prefix)
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rc *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rc: rc, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rc.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	return s.rc.Set(ctx, s.prefix+key, data, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rc.Del(ctx, s.prefix+key).Err()
}

func (s *RedisStore) Close() error { return s.rc.Close() }

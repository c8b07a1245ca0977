package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "giftledger:mfa:"

// RedisStore shares MFA state between service instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client. An empty prefix uses the default namespace.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisClient builds a client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if errPing := client.Ping(ctx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("mfa: ping redis %s: %w", addr, errPing)
	}
	return client, nil
}

// Set stores value with a Redis expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if errSet := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); errSet != nil {
		return fmt.Errorf("mfa: redis set: %w", errSet)
	}
	return nil
}

// Get returns the stored value. Expiry is enforced by Redis.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, errGet := s.client.Get(ctx, s.prefix+key).Bytes()
	if errGet != nil {
		if errors.Is(errGet, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mfa: redis get: %w", errGet)
	}
	return value, true, nil
}

// Delete removes a key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if errDel := s.client.Del(ctx, s.prefix+key).Err(); errDel != nil {
		return fmt.Errorf("mfa: redis del: %w", errDel)
	}
	return nil
}

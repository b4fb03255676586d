package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	redislib "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "credentials:session:"

// RedisBackend stores entries in Redis under a key prefix.
type RedisBackend struct {
	client redislib.Cmdable
	prefix string
}

// RedisOption customizes a RedisBackend.
type RedisOption func(*RedisBackend)

// WithRedisPrefix overrides DefaultRedisPrefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisBackend) {
		r.prefix = prefix
	}
}

// NewRedisBackend returns a backend using client.
func NewRedisBackend(client redislib.Cmdable, opts ...RedisOption) *RedisBackend {
	r := &RedisBackend{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// NewRedisClient parses url, connects and performs a health check.
func NewRedisClient(ctx context.Context, url string) (*redislib.Client, error) {
	opts, err := redislib.ParseURL(url)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid redis url")
	}

	client := redislib.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "redis ping failed")
	}

	return client, nil
}

var _ Backend = (*RedisBackend)(nil)

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return out, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisBackend) key(id string) string {
	return fmt.Sprintf("%s%s", r.prefix, id)
}

package secretstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/redis/go-redis/v9"
)

// consumeScript deletes KEYS[1] only when it currently holds ARGV[1].
// Redis runs scripts atomically, so GET and DEL cannot interleave with
// another client's call.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements Store on a Redis server. Keys are written as
// prefix+key; every call is bounded by timeout.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore wraps client. A non-positive timeout disables the per-call
// deadline and leaves only the caller's context.
func NewRedisStore(client *redis.Client, prefix string, timeout time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, timeout: timeout}
}

// NewRedisClient builds a go-redis client for addr with client-side retries
// disabled; a failed command surfaces to the caller immediately.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		MaxRetries: -1,
	})
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RedisStore) Store(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: ttl must be positive", common.ErrorValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) VerifyAndConsume(ctx context.Context, key, candidate string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key}, candidate).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: redis consume: %w", common.ErrStorageUnavailable, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

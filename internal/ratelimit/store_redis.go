package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter, starts the window on the first
// hit and returns the new count with the remaining window in milliseconds.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`

// DefaultRedisPrefix namespaces rate limit counters.
const DefaultRedisPrefix = "ratelimit:"

// RedisStore implements Store with a fixed window counter shared by every
// instance pointing at the same Redis.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	script *redis.Script
}

// NewRedisStore returns a Redis-backed store. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		script: redis.NewScript(fixedWindowScript),
	}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	vals, err := s.script.Run(ctx, s.client, []string{s.prefix + key}, ttl).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("rate limit script returned %d values", len(vals))
	}
	count, remainingMs := int(vals[0]), vals[1]
	if remainingMs < 0 {
		remainingMs = ttl
	}
	now := time.Now()
	resetAt := now.Add(time.Duration(remainingMs) * time.Millisecond)

	if count > limit {
		return &Result{
			Allowed:    false,
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

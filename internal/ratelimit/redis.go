package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// slidingWindowScript keeps one sorted set per key scored by request time in ms.
// KEYS: [1]=key
// ARGV: [1]=now_ms, [2]=window_ms, [3]=limit, [4]=member
// Returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  return {0, 0, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, limit - count - 1, 0}
`)

// RedisStore keeps sliding-window counters in Redis so that several processes
// share one quota. The check and the increment run in a single Lua script.
type RedisStore struct {
	rdb    goredis.Scripter
	clock  clockwork.Clock
	limit  int
	window time.Duration
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store admitting limit requests per window.
func NewRedisStore(rdb goredis.Scripter, clock clockwork.Clock, limit int, window time.Duration) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		clock:  clock,
		limit:  limit,
		window: window,
		prefix: "rate_limit:contact:",
	}
}

// Allow runs the sliding-window script for key.
func (s *RedisStore) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := slidingWindowScript.Run(ctx, s.rdb,
		[]string{s.prefix + key},
		s.clock.Now().UnixMilli(),
		s.window.Milliseconds(),
		s.limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit check: unexpected reply length %d", len(res))
	}

	d := Decision{
		Allowed:   res[0] == 1,
		Limit:     s.limit,
		Remaining: int(res[1]),
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(res[2]) * time.Millisecond
	}
	return d, nil
}

// NewRedisClient creates a go-redis client from a URL (e.g. "redis://localhost:6379")
// and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

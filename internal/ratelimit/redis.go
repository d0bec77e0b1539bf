package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the key's counter, starting the window with
// PEXPIRE on the first hit, and refuses to count past the limit.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	if current >= limit then
		return {0, 0, redis.call('PTTL', key)}
	end

	current = redis.call('INCR', key)
	if current == 1 then
		redis.call('PEXPIRE', key, window_ms)
	end
	return {1, limit - current, redis.call('PTTL', key)}
`)

// RedisLimiter shares windows between gateway replicas.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	prefix string
}

func NewRedisLimiter(client *redis.Client, cfg Config, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	result, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key},
		l.cfg.Events,
		l.cfg.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(result) < 3 {
		return Result{}, fmt.Errorf("unexpected result length: %d", len(result))
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return Result{}, fmt.Errorf("unexpected type for allowed: %T", result[0])
	}
	remaining, ok := result[1].(int64)
	if !ok {
		return Result{}, fmt.Errorf("unexpected type for remaining: %T", result[1])
	}
	ttlMs, ok := result[2].(int64)
	if !ok {
		return Result{}, fmt.Errorf("unexpected type for ttl: %T", result[2])
	}
	if ttlMs < 0 {
		ttlMs = l.cfg.Window.Milliseconds()
	}

	return Result{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   now.Add(time.Duration(ttlMs) * time.Millisecond),
	}, nil
}

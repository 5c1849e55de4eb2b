package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/quentinrf/fermpi/internal/ports"
)

// RedisLimiter counts requests per key in fixed windows stored in Redis,
// so several server processes share one budget
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  ports.Limit
	now    func() time.Time
}

// NewRedisLimiter creates a limiter whose keys start with prefix
func NewRedisLimiter(client *redis.Client, prefix string, l ports.Limit) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  l,
		now:    time.Now,
	}
}

// Allow increments key's counter for the current window
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := r.now().UnixNano() / int64(r.limit.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, window)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, r.limit.Window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}

	return incr.Val() <= int64(r.limit.Count), nil
}

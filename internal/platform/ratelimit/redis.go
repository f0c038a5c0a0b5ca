package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// RedisLimiter counts requests in fixed windows keyed by
// ratelimit:<client>:<window index>.
type RedisLimiter struct {
	rdb  *redis.Client
	opts Options
	now  func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, opts Options) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, opts: opts.withDefaults(), now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	window := now.UnixNano() / int64(l.opts.Window)
	redisKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, window)

	var count *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		count = p.Incr(ctx, redisKey)
		p.PExpire(ctx, redisKey, l.opts.Window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}

	resetAt := time.Unix(0, (window+1)*int64(l.opts.Window))
	n := int(count.Val())
	d := Decision{Limit: l.opts.Max, Allowed: n <= l.opts.Max}
	if d.Allowed {
		d.Remaining = l.opts.Max - n
	} else {
		d.RetryAfter = resetAt.Sub(now)
	}
	return d, nil
}

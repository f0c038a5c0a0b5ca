package ratelimit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, opts Options) (*RedisLimiter, *miniredis.Miniredis, *clock) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	clk := &clock{t: time.Date(2026, 1, 2, 10, 0, 30, 0, time.UTC)}
	l := NewRedisLimiter(rdb, opts)
	l.now = clk.now
	return l, mr, clk
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	l, mr, clk := newRedisLimiter(t, Options{Max: 2, Window: time.Minute})
	ctx := context.Background()

	for want := 1; want >= 0; want-- {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, want, d.Remaining)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter, "retry at the next window boundary")

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], keyPrefix+"10.0.0.1:"))
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))

	other, err := l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	clk.advance(30 * time.Second)
	d, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "a new window starts a new count")
}

func TestRedisLimiterReportsOutage(t *testing.T) {
	l, mr, _ := newRedisLimiter(t, Options{Max: 1, Window: time.Minute})
	mr.Close()

	_, err := l.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}

func TestWithFallbackUsesLocalWhenRedisFails(t *testing.T) {
	redisLimiter, mr, _ := newRedisLimiter(t, Options{Max: 1, Window: time.Minute})
	mr.Close()

	var seen []error
	l := WithFallback(redisLimiter, NewLocalLimiter(Options{Max: 1, Window: time.Minute}), func(err error) {
		seen = append(seen, err)
	})
	ctx := context.Background()

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed, "fallback still limits")
	assert.Len(t, seen, 2)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("down")
}

func TestWithFallbackPassesPrimaryDecision(t *testing.T) {
	l := WithFallback(NewLocalLimiter(Options{Max: 1, Window: time.Minute}), failingLimiter{}, nil)
	d, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

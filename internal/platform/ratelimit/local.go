package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter gives every key a token bucket that holds Max tokens and
// refills completely over one Window.
type LocalLimiter struct {
	opts  Options
	limit rate.Limit
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewLocalLimiter(opts Options) *LocalLimiter {
	opts = opts.withDefaults()
	return &LocalLimiter{
		opts:    opts,
		limit:   rate.Every(opts.Window / time.Duration(opts.Max)),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	b := l.buckets[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.opts.Max)}
		l.buckets[key] = b
	}
	b.seen = now

	res := b.lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{Limit: l.opts.Max, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Limit: l.opts.Max, Remaining: int(b.lim.TokensAt(now))}, nil
}

// sweep drops buckets idle for a full window; they would be full again.
func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.opts.Window {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= l.opts.Window {
			delete(l.buckets, k)
		}
	}
}

func (l *LocalLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

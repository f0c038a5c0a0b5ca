// Package ratelimit caps how many requests one client key may make per
// window. RedisLimiter shares counters across instances; LocalLimiter keeps
// them in process.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultMax    = 100
	DefaultWindow = 15 * time.Minute
)

type Options struct {
	Max    int
	Window time.Duration
}

func (o Options) withDefaults() Options {
	if o.Max <= 0 {
		o.Max = DefaultMax
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	return o
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type fallbackLimiter struct {
	primary  Limiter
	fallback Limiter
	onError  func(error)
}

// WithFallback consults primary and switches to fallback for any call where
// primary fails. onError, if set, sees every primary failure.
func WithFallback(primary, fallback Limiter, onError func(error)) Limiter {
	return &fallbackLimiter{primary: primary, fallback: fallback, onError: onError}
}

func (f *fallbackLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	d, err := f.primary.Allow(ctx, key)
	if err == nil {
		return d, nil
	}
	if f.onError != nil {
		f.onError(err)
	}
	return f.fallback.Allow(ctx, key)
}

package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

const (
	lockBackendLocal = "local"
	lockBackendRedis = "redis"
)

// lockOrder returns the distinct positive ids in ascending order. Every
// locker acquires in this order so two transfers over the same pair cannot
// deadlock.
func lockOrder(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LocalAccountLocker serializes work per account inside one process.
type LocalAccountLocker struct {
	mu      sync.Mutex
	slots   map[int64]*accountSlot
	metrics *observability.Metrics
}

type accountSlot struct {
	ch   chan struct{}
	refs int
}

var _ ledger.Locker = (*LocalAccountLocker)(nil)

func NewLocalAccountLocker(metrics *observability.Metrics) *LocalAccountLocker {
	return &LocalAccountLocker{slots: map[int64]*accountSlot{}, metrics: metrics}
}

func (l *LocalAccountLocker) WithAccounts(ctx context.Context, accountIDs []int64, fn func(ctx context.Context) error) error {
	ids := lockOrder(accountIDs)
	start := time.Now()
	acquired := make([]int64, 0, len(ids))
	defer func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			l.release(acquired[i])
		}
	}()
	for _, id := range ids {
		if err := l.acquire(ctx, id); err != nil {
			l.metrics.ObserveLockWait(lockBackendLocal, time.Since(start), err)
			return ledger.NewError(ledger.CodeStorageFailure, "account.lock", fmt.Sprintf("could not lock account %d", id), err)
		}
		acquired = append(acquired, id)
	}
	l.metrics.ObserveLockWait(lockBackendLocal, time.Since(start), nil)
	return fn(ctx)
}

func (l *LocalAccountLocker) acquire(ctx context.Context, id int64) error {
	l.mu.Lock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &accountSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.drop(id, slot)
		return ctx.Err()
	}
}

func (l *LocalAccountLocker) release(id int64) {
	l.mu.Lock()
	slot := l.slots[id]
	l.mu.Unlock()
	if slot == nil {
		return
	}
	<-slot.ch
	l.drop(id, slot)
}

func (l *LocalAccountLocker) drop(id int64, slot *accountSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}

// tracked reports how many accounts currently have holders or waiters.
func (l *LocalAccountLocker) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type RedisLockOptions struct {
	Prefix     string
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func (o RedisLockOptions) withDefaults() RedisLockOptions {
	if o.Prefix == "" {
		o.Prefix = "ledger:lock:account:"
	}
	if o.Expiry <= 0 {
		o.Expiry = 10 * time.Second
	}
	if o.Tries <= 0 {
		o.Tries = 32
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 50 * time.Millisecond
	}
	return o
}

// RedisAccountLocker serializes work per account across processes using
// the Redlock algorithm.
type RedisAccountLocker struct {
	rs      *redsync.Redsync
	opts    RedisLockOptions
	log     *logger.Logger
	metrics *observability.Metrics
}

var _ ledger.Locker = (*RedisAccountLocker)(nil)

func NewRedisAccountLocker(rdb *redis.Client, log *logger.Logger, metrics *observability.Metrics, opts RedisLockOptions) *RedisAccountLocker {
	return &RedisAccountLocker{
		rs:      redsync.New(goredis.NewPool(rdb)),
		opts:    opts.withDefaults(),
		log:     log.With("service", "RedisAccountLocker"),
		metrics: metrics,
	}
}

func (l *RedisAccountLocker) key(id int64) string {
	return fmt.Sprintf("%s%d", l.opts.Prefix, id)
}

func (l *RedisAccountLocker) WithAccounts(ctx context.Context, accountIDs []int64, fn func(ctx context.Context) error) error {
	ids := lockOrder(accountIDs)
	start := time.Now()
	held := make([]*redsync.Mutex, 0, len(ids))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			if ok, err := held[i].UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
				l.log.Warn("failed to release account lock", "lock_key", held[i].Name(), "error", err)
			}
		}
	}()
	for _, id := range ids {
		m := l.rs.NewMutex(
			l.key(id),
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)
		if err := m.LockContext(ctx); err != nil {
			l.metrics.ObserveLockWait(lockBackendRedis, time.Since(start), err)
			l.log.Error("failed to acquire account lock", "lock_key", l.key(id), "error", err)
			return ledger.NewError(ledger.CodeStorageFailure, "account.lock", fmt.Sprintf("could not lock account %d", id), err)
		}
		held = append(held, m)
	}
	l.metrics.ObserveLockWait(lockBackendRedis, time.Since(start), nil)
	return fn(ctx)
}

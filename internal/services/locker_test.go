package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

func TestLockOrderSortsAndDedupes(t *testing.T) {
	assert.Equal(t, []int64{1, 4, 9}, lockOrder([]int64{9, 1, 4, 9, 0, -3}))
	assert.Empty(t, lockOrder(nil))
}

func exerciseLockerSerializes(t *testing.T, locker ledger.Locker) {
	t.Helper()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithAccounts(context.Background(), []int64{42}, func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocalAccountLockerSerializesSameAccount(t *testing.T) {
	l := NewLocalAccountLocker(nil)
	exerciseLockerSerializes(t, l)
	assert.Equal(t, 0, l.tracked())
}

func TestLocalAccountLockerOpposingPairs(t *testing.T) {
	l := NewLocalAccountLocker(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.WithAccounts(context.Background(), []int64{1, 2}, func(context.Context) error { return nil })
		}()
		go func() {
			defer wg.Done()
			_ = l.WithAccounts(context.Background(), []int64{2, 1}, func(context.Context) error { return nil })
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposing lock orders deadlocked")
	}
	assert.Equal(t, 0, l.tracked())
}

func TestLocalAccountLockerHonoursContext(t *testing.T) {
	l := NewLocalAccountLocker(nil)
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithAccounts(context.Background(), []int64{5}, func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := l.WithAccounts(ctx, []int64{5}, func(context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, ledger.IsCode(err, ledger.CodeStorageFailure), "got %v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.Eventually(t, func() bool { return l.tracked() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLocalAccountLockerReturnsCallbackError(t *testing.T) {
	l := NewLocalAccountLocker(nil)
	want := ledger.NewError(ledger.CodeInsufficientFunds, "x", "y", nil)
	err := l.WithAccounts(context.Background(), []int64{1}, func(context.Context) error { return want })
	assert.Same(t, want, err)
}

func TestRedisAccountLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	log, err := logger.New("test")
	require.NoError(t, err)

	l := NewRedisAccountLocker(rdb, log, nil, RedisLockOptions{Prefix: "ledger:test:lock:"})
	exerciseLockerSerializes(t, l)
}

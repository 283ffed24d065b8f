package distributed_lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLock_TryLockAndUnlock(t *testing.T) {
	lock := NewMemoryLock()
	ctx := context.Background()

	token, ok, err := lock.TryLock(ctx, "scope-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "第一次获取锁应该成功")
	assert.NotEmpty(t, token)

	_, ok, err = lock.TryLock(ctx, "scope-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "锁被持有时不应再次获取")

	_, ok, err = lock.TryLock(ctx, "scope-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "不同key互不影响")

	require.NoError(t, lock.Unlock(ctx, "scope-a", token))
	locked, err := lock.IsLocked(ctx, "scope-a")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestMemoryLock_Expiry(t *testing.T) {
	lock := NewMemoryLock()
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return current }
	ctx := context.Background()

	token, ok, _ := lock.TryLock(ctx, "k", time.Second)
	require.True(t, ok)

	current = current.Add(2 * time.Second)
	assert.ErrorIs(t, lock.Refresh(ctx, "k", token, time.Second), ErrLockNotAcquired)

	_, ok, _ = lock.TryLock(ctx, "k", time.Second)
	assert.True(t, ok, "过期的锁可以被重新获取")
}

func TestMemoryLock_StaleHolderCannotReleaseOrRefresh(t *testing.T) {
	lock := NewMemoryLock()
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return current }
	ctx := context.Background()

	first, ok, _ := lock.TryLock(ctx, "scope", time.Second)
	require.True(t, ok)

	// 第一个持有者的锁过期后被第二个持有者获取
	current = current.Add(2 * time.Second)
	second, ok, _ := lock.TryLock(ctx, "scope", time.Minute)
	require.True(t, ok)
	require.NotEqual(t, first, second)

	require.NoError(t, lock.Unlock(ctx, "scope", first))
	locked, _ := lock.IsLocked(ctx, "scope")
	assert.True(t, locked, "过期持有者不能释放新持有者的锁")
	assert.ErrorIs(t, lock.Refresh(ctx, "scope", first, time.Minute), ErrLockNotAcquired)

	assert.NoError(t, lock.Refresh(ctx, "scope", second, time.Minute))
	require.NoError(t, lock.Unlock(ctx, "scope", second))
	locked, _ = lock.IsLocked(ctx, "scope")
	assert.False(t, locked)
}

func TestNewLock(t *testing.T) {
	lock, err := NewLock("memory")
	require.NoError(t, err)
	assert.IsType(t, &MemoryLock{}, lock)

	lock, err = NewLock("")
	require.NoError(t, err)
	assert.IsType(t, &MemoryLock{}, lock)

	t.Setenv("REDIS_HOST", "127.0.0.1")
	t.Setenv("REDIS_PORT", "1")
	lock, err = NewLock("redis")
	assert.Error(t, err, "配置了 Redis 但无法连接时不应退回进程内锁")
	assert.Nil(t, lock)
}

func TestLockExecutor_ExecuteWithLock_Held(t *testing.T) {
	lock := NewMemoryLock()
	executor := NewLockExecutor(lock)
	ctx := context.Background()

	_, ok, _ := lock.TryLock(ctx, "busy", time.Minute)
	require.True(t, ok)

	called := false
	err := executor.ExecuteWithLock(ctx, "busy", time.Minute, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)
}

func TestLockExecutor_ReleasesAfterError(t *testing.T) {
	lock := NewMemoryLock()
	executor := NewLockExecutor(lock)
	ctx := context.Background()
	boom := errors.New("boom")

	err := executor.ExecuteWithLockAndRefresh(ctx, "k", time.Minute, 10*time.Millisecond, func() error {
		time.Sleep(30 * time.Millisecond)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	locked, _ := lock.IsLocked(ctx, "k")
	assert.False(t, locked, "执行结束后应释放锁")
}

func TestLockExecutor_SerializesSameKey(t *testing.T) {
	lock := NewMemoryLock()
	executor := NewLockExecutor(lock)
	ctx := context.Background()

	var running, maxRunning, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := executor.ExecuteWithLock(ctx, "same", time.Minute, func() error {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxRunning)
					if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			if errors.Is(err, ErrLockNotAcquired) {
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxRunning, "同一key不允许并发执行")
}

package distributed_lock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis 连接 REDIS_HOST/REDIS_PORT 指定的 Redis，不可用时跳过
func setupTestRedis(t *testing.T) (*RedisLock, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", getEnvWithDefault("REDIS_HOST", "localhost"), getEnvWithDefault("REDIS_PORT", "6379")),
		DialTimeout: time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis 不可用，跳过: %v", err)
	}

	// 每个测试使用独立前缀，不清空整个库
	prefix := "integrity_service_test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		client.Close()
	})
	return NewRedisLockWithClient(client, prefix), client
}

func TestRedisLock_TryLockAndUnlock(t *testing.T) {
	lock, client := setupTestRedis(t)
	ctx := context.Background()

	token, ok, err := lock.TryLock(ctx, "scope-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	stored, err := client.Get(ctx, lock.keyPrefix+"scope-a").Result()
	require.NoError(t, err)
	assert.Equal(t, token, stored, "锁的值应为本次持有的 token")

	_, ok, err = lock.TryLock(ctx, "scope-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "锁被持有时不应再次获取")

	require.NoError(t, lock.Unlock(ctx, "scope-a", token))
	locked, err := lock.IsLocked(ctx, "scope-a")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRedisLock_OnlyHolderCanReleaseOrRefresh(t *testing.T) {
	lock, client := setupTestRedis(t)
	ctx := context.Background()

	token, ok, err := lock.TryLock(ctx, "scope", 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Unlock(ctx, "scope", "other-holder"))
	locked, err := lock.IsLocked(ctx, "scope")
	require.NoError(t, err)
	assert.True(t, locked, "非持有者不能释放锁")

	assert.ErrorIs(t, lock.Refresh(ctx, "scope", "other-holder", time.Minute), ErrLockNotAcquired)

	require.NoError(t, lock.Refresh(ctx, "scope", token, time.Minute))
	ttl, err := client.PTTL(ctx, lock.keyPrefix+"scope").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second, "续期后过期时间应被延长")

	require.NoError(t, lock.Unlock(ctx, "scope", token))
	locked, err = lock.IsLocked(ctx, "scope")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRedisLock_ExecutorSerializesAcrossInstances(t *testing.T) {
	lock, client := setupTestRedis(t)
	other := NewRedisLockWithClient(client, lock.keyPrefix)
	ctx := context.Background()

	err := NewLockExecutor(lock).ExecuteWithLock(ctx, "scope", time.Minute, func() error {
		return NewLockExecutor(other).ExecuteWithLock(ctx, "scope", time.Minute, func() error {
			t.Fatal("同一范围不应被并发持有")
			return nil
		})
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	locked, err := lock.IsLocked(ctx, "scope")
	require.NoError(t, err)
	assert.False(t, locked, "执行结束后应释放锁")
}

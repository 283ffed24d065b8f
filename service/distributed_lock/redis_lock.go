/*
 * @module service/distributed_lock/redis_lock
 * @description Redis分布式锁实现，用于多实例环境下同一范围的自动修正互斥
 * @architecture 工具层 - 提供分布式锁能力
 * @stateFlow 获取锁 -> 执行修正 -> 释放锁/自动过期
 * @rules 使用Redis SET NX实现，支持锁续期和自动过期，只有持有者可以释放
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/integrity/corrector.go
 */

package distributed_lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"integrity-service/service/config"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockNotAcquired 锁已被其他持有者占用
var ErrLockNotAcquired = errors.New("锁已被其他实例持有")

// DistributedLock 分布式锁接口
type DistributedLock interface {
	// TryLock 尝试获取锁，成功时返回本次持有的 token
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	// Unlock 释放锁，只有 token 匹配时才会删除
	Unlock(ctx context.Context, key, token string) error
	// Refresh 刷新锁的过期时间，token 不匹配时返回 ErrLockNotAcquired
	Refresh(ctx context.Context, key, token string, ttl time.Duration) error
	// IsLocked 检查锁是否存在
	IsLocked(ctx context.Context, key string) (bool, error)
}

const defaultKeyPrefix = "integrity_service:lock:"

const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

const refreshScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// RedisLock Redis分布式锁实现
type RedisLock struct {
	client     *redis.Client
	instanceID string // 实例ID，作为 token 前缀便于排查
	keyPrefix  string
}

// NewRedisLock 根据环境变量创建Redis分布式锁
func NewRedisLock() (*RedisLock, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	lock := NewRedisLockWithClient(client, getEnvWithDefault("REDIS_LOCK_PREFIX", defaultKeyPrefix))

	slog.Info("Redis分布式锁初始化成功",
		"instance_id", lock.instanceID,
		"redis_host", host,
		"redis_port", port)

	return lock, nil
}

// NewLock 按配置的后端创建修正锁
// 配置为 redis 时连接失败直接返回错误，不退回进程内锁，避免多实例下同一范围被并发修正
func NewLock(backend string) (DistributedLock, error) {
	if backend != config.LockBackendRedis {
		return NewMemoryLock(), nil
	}
	lock, err := NewRedisLock()
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// NewRedisLockWithClient 使用已有客户端创建分布式锁
func NewRedisLockWithClient(client *redis.Client, keyPrefix string) *RedisLock {
	// 实例ID使用主机名+进程ID
	hostname, _ := os.Hostname()
	return &RedisLock{
		client:     client,
		instanceID: fmt.Sprintf("%s:%d", hostname, os.Getpid()),
		keyPrefix:  keyPrefix,
	}
}

func (r *RedisLock) lockKey(key string) string {
	return r.keyPrefix + key
}

// TryLock 尝试获取锁
// 使用SET NX命令，只有当key不存在时才会设置成功；每次获取生成新的 token
func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := r.instanceID + ":" + uuid.NewString()
	result, err := r.client.SetNX(ctx, r.lockKey(key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("获取锁失败: %w", err)
	}
	if !result {
		return "", false, nil
	}

	slog.Debug("分布式锁: 成功获取锁", "key", key, "ttl", ttl, "token", token)
	return token, true, nil
}

// Unlock 释放锁
// 使用Lua脚本确保只有锁的持有者才能释放锁
func (r *RedisLock) Unlock(ctx context.Context, key, token string) error {
	result, err := r.client.Eval(ctx, unlockScript, []string{r.lockKey(key)}, token).Int64()
	if err != nil {
		return fmt.Errorf("释放锁失败: %w", err)
	}

	if result == 1 {
		slog.Debug("分布式锁: 成功释放锁", "key", key, "token", token)
	} else {
		slog.Warn("分布式锁: 锁不存在或已被其他持有者获取", "key", key, "token", token)
	}
	return nil
}

// Refresh 刷新锁的过期时间
func (r *RedisLock) Refresh(ctx context.Context, key, token string, ttl time.Duration) error {
	result, err := r.client.Eval(ctx, refreshScript, []string{r.lockKey(key)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("刷新锁失败: %w", err)
	}
	if result == 1 {
		return nil
	}
	return ErrLockNotAcquired
}

// IsLocked 检查锁是否存在
func (r *RedisLock) IsLocked(ctx context.Context, key string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("检查锁状态失败: %w", err)
	}
	return exists > 0, nil
}

// Close 关闭Redis客户端
func (r *RedisLock) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// LockExecutor 带锁执行器，用于简化锁的使用
type LockExecutor struct {
	lock DistributedLock
}

// NewLockExecutor 创建带锁执行器
func NewLockExecutor(lock DistributedLock) *LockExecutor {
	return &LockExecutor{lock: lock}
}

// ExecuteWithLock 在锁保护下执行函数，锁被占用时返回 ErrLockNotAcquired
func (e *LockExecutor) ExecuteWithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	token, locked, err := e.lock.TryLock(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !locked {
		return ErrLockNotAcquired
	}

	defer e.unlock(key, token)

	return fn()
}

// ExecuteWithLockAndRefresh 在锁保护下执行函数，并按 refreshInterval 自动续期
func (e *LockExecutor) ExecuteWithLockAndRefresh(ctx context.Context, key string, ttl time.Duration, refreshInterval time.Duration, fn func() error) error {
	token, locked, err := e.lock.TryLock(ctx, key, ttl)
	if err != nil {
		return err
	}
	if !locked {
		return ErrLockNotAcquired
	}

	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()

	if refreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(refreshInterval)
			defer ticker.Stop()

			for {
				select {
				case <-refreshCtx.Done():
					return
				case <-ticker.C:
					if refreshErr := e.lock.Refresh(refreshCtx, key, token, ttl); refreshErr != nil {
						slog.Error("分布式锁: 续期失败", "key", key, "error", refreshErr)
					}
				}
			}
		}()
	}

	defer e.unlock(key, token)

	return fn()
}

// unlock 释放锁，调用方上下文可能已取消，这里使用独立的超时
func (e *LockExecutor) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := e.lock.Unlock(ctx, key, token); err != nil {
		slog.Error("分布式锁: 释放锁失败", "key", key, "error", err)
	}
}

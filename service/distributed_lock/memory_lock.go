package distributed_lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	token    string
	expireAt time.Time
}

// MemoryLock 进程内锁实现，用于单实例部署
type MemoryLock struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryLock 创建进程内锁
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// TryLock 尝试获取锁，过期的锁视为不存在
func (m *MemoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, ok := m.entries[key]; ok && now.Before(entry.expireAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	m.entries[key] = memoryEntry{token: token, expireAt: now.Add(ttl)}
	return token, true, nil
}

// Unlock 释放锁，token 不匹配时不做任何操作
func (m *MemoryLock) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[key]; ok && entry.token == token {
		delete(m.entries, key)
	}
	return nil
}

// Refresh 刷新锁的过期时间，只有当前持有者可以续期
func (m *MemoryLock) Refresh(ctx context.Context, key, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if !ok || entry.token != token || !now.Before(entry.expireAt) {
		return ErrLockNotAcquired
	}
	entry.expireAt = now.Add(ttl)
	m.entries[key] = entry
	return nil
}

// IsLocked 检查锁是否存在
func (m *MemoryLock) IsLocked(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	return ok && m.now().Before(entry.expireAt), nil
}

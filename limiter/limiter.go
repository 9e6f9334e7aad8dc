// Package limiter 提供请求限流与计算并发控制.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter 限流器.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalLimiter 进程内全局令牌桶，忽略 key.
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter 创建全局令牌桶. r 为每秒令牌数，b 为突发容量.
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{limiter: rate.NewLimiter(r, b)}
}

// Allow 尝试获取一个令牌.
func (l *LocalLimiter) Allow(context.Context, string) (bool, error) {
	return l.limiter.Allow(), nil
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter 按 key (通常为客户端 IP) 分别维护令牌桶.
// 超过 idle 未访问的桶在下一次访问时被回收.
type KeyedLimiter struct {
	mu      sync.Mutex
	r       rate.Limit
	b       int
	idle    time.Duration
	entries map[string]*keyedEntry
	sweepAt time.Time
	now     func() time.Time
}

// NewKeyedLimiter 创建按 key 限流的令牌桶集合.
func NewKeyedLimiter(r rate.Limit, b int, idle time.Duration) *KeyedLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &KeyedLimiter{
		r:       r,
		b:       b,
		idle:    idle,
		entries: make(map[string]*keyedEntry),
		now:     time.Now,
	}
}

// Allow 尝试为 key 获取一个令牌.
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.sweepAt) {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.idle {
				delete(l.entries, k)
			}
		}
		l.sweepAt = now.Add(l.idle)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &keyedEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Len 返回当前维护的桶数量.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

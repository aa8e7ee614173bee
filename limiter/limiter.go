// Package limiter 提供基于令牌桶的本地限流器.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL 令牌桶空闲超过该时长后被回收.
// 回收后再次出现的 key 拿到满桶，只要 TTL 大于 burst/rate 就与保留旧桶等价.
const DefaultIdleTTL = 10 * time.Minute

// Limiter 接口定义了限流器的通用行为。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error) // 检查是否允许请求通过。
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter 按 key（通常为客户端 IP）维护独立令牌桶，空闲的桶定期回收。
type KeyedLimiter struct {
	mu        sync.Mutex
	r         rate.Limit
	b         int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
	buckets   map[string]*bucket
}

// NewKeyedLimiter 创建按 key 隔离的本地限流器。
// r: 每秒生成的令牌数；b: 令牌桶容量。
func NewKeyedLimiter(r rate.Limit, b int) *KeyedLimiter {
	return &KeyedLimiter{
		r:         r,
		b:         b,
		idleTTL:   DefaultIdleTTL,
		now:       time.Now,
		lastSweep: time.Now(),
		buckets:   make(map[string]*bucket),
	}
}

// Allow 针对 key 对应的令牌桶尝试取得一个令牌。
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	bk, ok := l.buckets[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(l.r, l.b)}
		l.buckets[key] = bk
	}
	bk.lastSeen = now
	l.mu.Unlock()
	return bk.limiter.AllowN(now, 1), nil
}

// sweep 删除空闲超过 idleTTL 的令牌桶，调用方需持有锁。
func (l *KeyedLimiter) sweep(now time.Time) {
	for key, bk := range l.buckets {
		if now.Sub(bk.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// Len 返回当前维护的令牌桶数量。
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// SetLimit 调整速率与容量，已存在的令牌桶同步更新。
func (l *KeyedLimiter) SetLimit(r rate.Limit, b int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r, l.b = r, b
	for _, bk := range l.buckets {
		bk.limiter.SetLimit(r)
		bk.limiter.SetBurst(b)
	}
}

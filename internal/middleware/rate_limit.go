package middleware

import (
	"sync"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/example/herbalshop/internal/config"
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	capacity   int64 // 桶容量
	tokens     int64
	refillRate int64 // 每秒补充的令牌数
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket 创建令牌桶
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow 检查是否允许请求
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	tokensToAdd := int64(now.Sub(tb.lastRefill).Seconds()) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// KeyedLimiter 按 key（客户端 IP）各自一个令牌桶
type KeyedLimiter struct {
	capacity   int64
	refillRate int64
	// idle 桶闲置超过这个时长必然已补满，可以回收
	idle      time.Duration
	buckets   map[string]*TokenBucket
	lastSweep time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewKeyedLimiter 创建按 key 限流的令牌桶集合
func NewKeyedLimiter(capacity, refillRate int64) *KeyedLimiter {
	l := &KeyedLimiter{
		capacity:   capacity,
		refillRate: refillRate,
		buckets:    make(map[string]*TokenBucket),
		now:        time.Now,
	}
	if refillRate > 0 {
		l.idle = time.Duration((capacity+refillRate-1)/refillRate) * time.Second
		if l.idle < time.Minute {
			l.idle = time.Minute
		}
	}
	l.lastSweep = l.now()
	return l
}

// Allow 检查 key 对应的桶是否还有令牌
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if l.idle > 0 && now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &TokenBucket{
			capacity:   l.capacity,
			tokens:     l.capacity,
			refillRate: l.refillRate,
			lastRefill: now,
			now:        l.now,
		}
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// sweep 回收已补满的桶，调用方持有 l.mu
func (l *KeyedLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		b.mu.Lock()
		full := now.Sub(b.lastRefill) >= l.idle
		b.mu.Unlock()
		if full {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *KeyedLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimitMiddleware 按客户端 IP 限流，链接是浏览器直接打开的，返回纯文本
func RateLimitMiddleware(limiter *KeyedLimiter) iris.Handler {
	return func(ctx iris.Context) {
		if !limiter.Allow(ctx.RemoteAddr()) {
			ctx.StopWithText(iris.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}
		ctx.Next()
	}
}

// LinkRateLimit 免登录链接接口限流，容量为 0 时不限流
func LinkRateLimit(cfg *config.LinksConfig) iris.Handler {
	if cfg.RateLimit <= 0 {
		return func(ctx iris.Context) { ctx.Next() }
	}
	return RateLimitMiddleware(NewKeyedLimiter(cfg.RateLimit, cfg.RateLimitRefill))
}

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	radix "github.com/mediocregopher/radix/v3"
)

const redisLinkUsedKey = "link:used:%s" // jti

// UsedTokens 一次性令牌的使用记录
type UsedTokens interface {
	// Claim 首次使用返回 true，已使用过返回 false
	Claim(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// RedisUsedTokens 基于 SET NX 的使用记录，多实例共享
type RedisUsedTokens struct {
	redis radix.Client
}

func NewRedisUsedTokens(redis radix.Client) *RedisUsedTokens {
	return &RedisUsedTokens{redis: redis}
}

func (r *RedisUsedTokens) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	var reply string
	mn := radix.MaybeNil{Rcv: &reply}
	key := fmt.Sprintf(redisLinkUsedKey, id)
	if err := r.redis.Do(radix.FlatCmd(&mn, "SET", key, 1, "NX", "PX", ttl.Milliseconds())); err != nil {
		return false, err
	}
	return !mn.Nil && reply == "OK", nil
}

// MemoryUsedTokens 进程内使用记录，未配置 Redis 时使用
type MemoryUsedTokens struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryUsedTokens() *MemoryUsedTokens {
	return &MemoryUsedTokens{seen: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryUsedTokens) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	// 顺手清理过期记录
	for k, exp := range m.seen {
		if now.After(exp) {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[id]; ok {
		return false, nil
	}
	m.seen[id] = now.Add(ttl)
	return true, nil
}

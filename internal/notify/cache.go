package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/metrics"
)

// ClientCache 以凭据为 key 的单槽缓存
type ClientCache struct {
	mu      sync.Mutex
	factory ClientFactory
	client  Client
	creds   Credentials
}

func NewClientCache(factory ClientFactory) *ClientCache {
	return &ClientCache{factory: factory}
}

// Get 凭据与缓存一致时复用，否则关闭旧客户端并按新凭据重建
func (c *ClientCache) Get(ctx context.Context, creds Credentials) (Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.creds == creds {
		return c.client, nil
	}
	if c.client != nil {
		c.closeLocked()
	}

	client, err := c.factory(ctx, creds)
	if err != nil {
		return nil, err
	}
	metrics.GetMonitor().RecordClientBuild()
	zap.L().Info("mail client initialized", zap.String("sender", creds.Address))
	c.client = client
	c.creds = creds
	return client, nil
}

// Invalidate 丢弃发送失败的客户端；缓存已被替换成新客户端时不做处理
func (c *ClientCache) Invalidate(failed Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil || c.client != failed {
		return
	}
	c.closeLocked()
}

func (c *ClientCache) closeLocked() {
	if err := c.client.Close(); err != nil {
		zap.L().Debug("close mail client", zap.Error(err))
	}
	c.client = nil
	c.creds = Credentials{}
}

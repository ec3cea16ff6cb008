package redis

import (
	"fmt"
	"sync"

	radix "github.com/mediocregopher/radix/v3"

	"github.com/example/herbalshop/internal/config"
)

var (
	client  radix.Client
	initErr error
	once    sync.Once
)

// Init 初始化 Redis 连接池
func Init(cfg *config.RedisConfig) (radix.Client, error) {
	once.Do(func() {
		pool, err := radix.NewPool("tcp", cfg.Addr, 10)
		if err != nil {
			initErr = fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
			return
		}
		client = pool
	})
	return client, initErr
}

// Client 获取 Redis 客户端
func Client() radix.Client {
	return client
}

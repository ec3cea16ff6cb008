package mq

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/herbalshop/internal/config"
)

var (
	conn    *amqp.Connection
	initErr error
	once    sync.Once
)

// Init 初始化进程共享的 RabbitMQ 连接
func Init(cfg *config.RabbitMQConfig) (*amqp.Connection, error) {
	once.Do(func() {
		conn, initErr = Dial(cfg)
	})
	return conn, initErr
}

// Dial 建立一条新连接，发布者断线重连时使用
func Dial(cfg *config.RabbitMQConfig) (*amqp.Connection, error) {
	c, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	return c, nil
}

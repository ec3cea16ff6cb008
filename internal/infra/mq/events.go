package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// LifecycleEvent 一次已提交的状态变更（或实体创建）
type LifecycleEvent struct {
	EventID  string    `json:"event_id"`
	Entity   string    `json:"entity"` // order / product / review
	EntityID int64     `json:"entity_id"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to"`
	Actor    string    `json:"actor"`
	At       time.Time `json:"at"`
}

// NewEvent 生成带唯一 ID 的事件
func NewEvent(entity string, id int64, from, to, actor string) LifecycleEvent {
	return LifecycleEvent{
		EventID:  uuid.NewString(),
		Entity:   entity,
		EntityID: id,
		From:     from,
		To:       to,
		Actor:    actor,
		At:       time.Now().UTC(),
	}
}

// publishChannel 发布用到的 channel 能力，*amqp.Channel 满足
type publishChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// connection 发布用到的连接能力
type connection interface {
	IsClosed() bool
	Close() error
	openChannel() (publishChannel, error)
}

type amqpConn struct {
	*amqp.Connection
}

func (c amqpConn) openChannel() (publishChannel, error) {
	ch, err := c.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Publisher 把生命周期事件写入持久化队列
//
// 连接断开（broker 重启、网络抖动）后，下一次发布时重新建立连接。
type Publisher struct {
	mu    sync.Mutex
	conn  connection
	dial  func() (connection, error)
	queue string
}

// NewPublisher 创建发布者，redial 用于断线后重新建立连接
func NewPublisher(conn *amqp.Connection, queue string, redial func() (*amqp.Connection, error)) *Publisher {
	var c connection
	if conn != nil {
		c = amqpConn{conn}
	}
	return newPublisher(c, queue, func() (connection, error) {
		nc, err := redial()
		if err != nil {
			return nil, err
		}
		return amqpConn{nc}, nil
	})
}

func newPublisher(conn connection, queue string, dial func() (connection, error)) *Publisher {
	return &Publisher{conn: conn, dial: dial, queue: queue}
}

// channel 打开一个新 channel，连接已关闭时先重连；旧连接上开 channel 失败时重连后再试一次
func (p *Publisher) channel() (publishChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if p.conn == nil || p.conn.IsClosed() {
			if p.conn != nil {
				_ = p.conn.Close()
				zap.L().Warn("rabbitmq connection closed, reconnecting", zap.String("queue", p.queue))
			}
			p.conn = nil
			c, err := p.dial()
			if err != nil {
				return nil, fmt.Errorf("reconnect rabbitmq: %w", err)
			}
			p.conn = c
		}
		ch, err := p.conn.openChannel()
		if err == nil {
			return ch, nil
		}
		lastErr = err
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil, fmt.Errorf("open channel: %w", lastErr)
}

// Close 关闭当前连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// Publish 每次发布使用独立 channel，避免并发请求共享 channel
func (p *Publisher) Publish(ctx context.Context, e LifecycleEvent) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(&e)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.EventID,
			Timestamp:    e.At,
			Body:         body,
		},
	)
}

// Discard 未配置 MQ 时使用，丢弃事件
type Discard struct{}

func (Discard) Publish(ctx context.Context, e LifecycleEvent) error { return nil }

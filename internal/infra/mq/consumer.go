package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler 处理一条生命周期事件，返回错误时消息重新入队一次
type Handler func(ctx context.Context, e LifecycleEvent) error

// Consume 手动确认模式消费事件，直到 ctx 结束或连接断开
func Consume(ctx context.Context, conn *amqp.Connection, queue string, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err = ch.Qos(32, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			handleDelivery(ctx, d, h)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, h Handler) {
	var e LifecycleEvent
	if err := json.Unmarshal(d.Body, &e); err != nil {
		zap.L().Warn("invalid lifecycle event", zap.String("message_id", d.MessageId), zap.Error(err))
		// 格式错误，拒绝并丢弃
		_ = d.Nack(false, false)
		return
	}
	if err := h(ctx, e); err != nil {
		zap.L().Warn("handle lifecycle event",
			zap.String("event_id", e.EventID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err))
		// 只重试一次，避免毒消息反复投递
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/config"
	"github.com/example/herbalshop/internal/infra/mq"
	"github.com/example/herbalshop/internal/logger"
)

// event-audit 消费生命周期事件，每条事件写一行结构化审计日志
func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	l, err := logger.Init(&cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer l.Sync()

	conn, err := mq.Init(&cfg.RabbitMQ)
	if err != nil {
		zap.L().Fatal("connect rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	audit := zap.L().Named("audit")
	zap.L().Info("event audit started", zap.String("queue", cfg.RabbitMQ.Queue))
	err = mq.Consume(ctx, conn, cfg.RabbitMQ.Queue, func(ctx context.Context, e mq.LifecycleEvent) error {
		audit.Info("lifecycle event",
			zap.String("event_id", e.EventID),
			zap.String("entity", e.Entity),
			zap.Int64("entity_id", e.EntityID),
			zap.String("from", e.From),
			zap.String("to", e.To),
			zap.String("actor", e.Actor),
			zap.Time("at", e.At))
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Fatal("consume lifecycle events", zap.Error(err))
	}
	zap.L().Info("event audit stopped")
}

package server

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/auth"
	"github.com/example/herbalshop/internal/config"
	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/datamodels/review"
	"github.com/example/herbalshop/internal/datamodels/setting"
	"github.com/example/herbalshop/internal/infra/mq"
	"github.com/example/herbalshop/internal/infra/redis"
	"github.com/example/herbalshop/internal/notify"
	"github.com/example/herbalshop/internal/repository/memory"
	"github.com/example/herbalshop/internal/repository/mysql"
	"github.com/example/herbalshop/internal/service"
)

// Services 路由依赖的全部服务
type Services struct {
	Orders   *service.OrderService
	Products *service.ProductService
	Reviews  *service.ReviewService
	Settings *service.SettingService
	Links    *auth.Links
}

// Repositories 一组仓储实现
type Repositories struct {
	Orders   order.Repository
	Products product.Repository
	Reviews  review.Repository
	Settings setting.Repository
}

// NewServices 组装服务
func NewServices(cfg *config.Config, repos Repositories, dispatcher notify.Dispatcher, used auth.UsedTokens, events service.EventPublisher) *Services {
	links := auth.NewLinks(&cfg.Links, used)
	return &Services{
		Orders:   service.NewOrderService(repos.Orders, dispatcher, links, events),
		Products: service.NewProductService(repos.Products, dispatcher, links, events),
		Reviews:  service.NewReviewService(repos.Reviews, repos.Products),
		Settings: service.NewSettingService(repos.Settings),
		Links:    links,
	}
}

// Bootstrap 按配置初始化存储、Redis、MQ 和邮件通道
// Redis 和 MQ 连接失败时降级运行：链接令牌记录在进程内，生命周期事件丢弃。
func Bootstrap(cfg *config.Config) (*Services, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Links.Secret == "" {
		return nil, cleanup, errors.New("links.secret must not be empty")
	}
	if keys := cfg.DefaultSecrets(); len(keys) > 0 {
		zap.L().Warn("built-in default secrets in use, login tokens and email links can be forged; override them with HERBAL_JWT_SECRET / HERBAL_LINKS_SECRET",
			zap.Strings("keys", keys))
	}

	var repos Repositories
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		repos = Repositories{
			Orders:   memory.NewOrderRepository(store),
			Products: memory.NewProductRepository(store),
			Reviews:  memory.NewReviewRepository(store),
			Settings: memory.NewSettingRepository(store),
		}
		zap.L().Warn("using in-memory storage, data is lost on restart")
	case "mysql", "":
		db, err := mysql.Init(&cfg.MySQL)
		if err != nil {
			return nil, cleanup, err
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
		repos = Repositories{
			Orders:   mysql.NewOrderRepository(db),
			Products: mysql.NewProductRepository(db),
			Reviews:  mysql.NewReviewRepository(db),
			Settings: mysql.NewSettingRepository(db),
		}
	default:
		return nil, cleanup, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	var used auth.UsedTokens = auth.NewMemoryUsedTokens()
	if cfg.Redis.Addr != "" {
		client, err := redis.Init(&cfg.Redis)
		if err != nil {
			zap.L().Warn("redis unavailable, link tokens tracked in process", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			used = auth.NewRedisUsedTokens(client)
		}
	}

	var events service.EventPublisher = mq.Discard{}
	if cfg.RabbitMQ.URL != "" {
		conn, err := mq.Init(&cfg.RabbitMQ)
		if err != nil {
			zap.L().Warn("rabbitmq unavailable, lifecycle events are dropped", zap.Error(err))
		} else {
			publisher := mq.NewPublisher(conn, cfg.RabbitMQ.Queue, func() (*amqp.Connection, error) {
				return mq.Dial(&cfg.RabbitMQ)
			})
			closers = append(closers, func() { _ = publisher.Close() })
			events = publisher
		}
	}

	dispatcher := notify.NewChannel(
		notify.NewSettingsSource(repos.Settings),
		notify.NewSMTPFactory(&cfg.Mail),
		cfg.Mail.SenderName,
	)
	return NewServices(cfg, repos, dispatcher, used, events), cleanup, nil
}

// Package notify 负责使用设置表中当前的邮件账号发送通知。
//
// 发送客户端按账号+密码缓存：凭据不变时复用，凭据变化时重建，发送失败时丢弃，
// 下次发送重新构建。投递是尽力而为的，最多一次，不做重试。
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/datamodels/setting"
	"github.com/example/herbalshop/internal/metrics"
)

var (
	// ErrNotConfigured 设置表中缺少发件账号或密码，本次发送被跳过
	ErrNotConfigured = errors.New("notification channel not configured")
	// ErrDeliveryFailure 传输层发送失败
	ErrDeliveryFailure = errors.New("notification delivery failed")
)

// Request 一次通知请求，不落库
type Request struct {
	To      string
	Subject string
	HTML    string
	// From 为空时使用当前配置的发件地址
	From string
	// ReplyTo 为空时使用发件地址
	ReplyTo string
}

// Credentials 发件账号与密码
type Credentials struct {
	Address string
	Secret  string
}

func (c Credentials) complete() bool {
	return c.Address != "" && c.Secret != ""
}

// CredentialSource 每次发送前读取最新凭据
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// SettingsSource 从设置表读取凭据
type SettingsSource struct {
	repo setting.Repository
}

func NewSettingsSource(repo setting.Repository) *SettingsSource {
	return &SettingsSource{repo: repo}
}

func (s *SettingsSource) Credentials(ctx context.Context) (Credentials, error) {
	addr, err := s.repo.Get(ctx, setting.KeySenderAddress)
	if err != nil {
		return Credentials{}, fmt.Errorf("read sender address: %w", err)
	}
	secret, err := s.repo.Get(ctx, setting.KeySenderSecret)
	if err != nil {
		return Credentials{}, fmt.Errorf("read sender secret: %w", err)
	}
	return Credentials{Address: addr, Secret: secret}, nil
}

// Message 交给发送客户端的最终邮件
type Message struct {
	From     string
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	HTML     string
}

// Client 绑定某组凭据的发送客户端
type Client interface {
	// Send 返回投递标识（Message-ID）
	Send(ctx context.Context, msg *Message) (string, error)
	Close() error
}

// ClientFactory 根据凭据构建客户端
type ClientFactory func(ctx context.Context, creds Credentials) (Client, error)

// Dispatcher 通知发送能力，状态机只依赖这个接口
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (string, error)
	// Recipient 管理员通知的收件地址，未配置时返回空串
	Recipient(ctx context.Context) (string, error)
}

// Channel 默认的 Dispatcher 实现
type Channel struct {
	source     CredentialSource
	cache      *ClientCache
	senderName string
}

// NewChannel 创建通知通道
func NewChannel(source CredentialSource, factory ClientFactory, senderName string) *Channel {
	return &Channel{
		source:     source,
		cache:      NewClientCache(factory),
		senderName: senderName,
	}
}

// Recipient 管理员通知发往当前配置的发件地址
func (ch *Channel) Recipient(ctx context.Context) (string, error) {
	creds, err := ch.source.Credentials(ctx)
	if err != nil {
		return "", err
	}
	return creds.Address, nil
}

// Dispatch 读取最新凭据并发送，失败时丢弃缓存客户端
func (ch *Channel) Dispatch(ctx context.Context, req Request) (string, error) {
	creds, err := ch.source.Credentials(ctx)
	if err != nil {
		return "", err
	}
	if !creds.complete() {
		metrics.GetMonitor().RecordNotification("not_configured")
		return "", ErrNotConfigured
	}

	client, err := ch.cache.Get(ctx, creds)
	if err != nil {
		metrics.GetMonitor().RecordNotification("failed")
		return "", fmt.Errorf("%w: build client: %v", ErrDeliveryFailure, err)
	}

	sender := creds.Address
	if req.From != "" {
		sender = req.From
	}
	replyTo := req.ReplyTo
	if replyTo == "" {
		replyTo = sender
	}
	id, err := client.Send(ctx, &Message{
		From:     sender,
		FromName: ch.senderName,
		To:       req.To,
		ReplyTo:  replyTo,
		Subject:  req.Subject,
		HTML:     req.HTML,
	})
	if err != nil {
		ch.cache.Invalidate(client)
		metrics.GetMonitor().RecordNotification("failed")
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	metrics.GetMonitor().RecordNotification("sent")
	zap.L().Info("notification sent",
		zap.String("message_id", id),
		zap.String("to", req.To),
		zap.String("subject", req.Subject))
	return id, nil
}

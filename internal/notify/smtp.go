package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/example/herbalshop/internal/config"
)

// smtpClient 持有一条已认证的 SMTP 连接，串行发送
type smtpClient struct {
	mu   sync.Mutex
	conn gomail.SendCloser
}

// NewSMTPFactory 构建 SMTP 客户端工厂，连接在构建时建立并完成认证
func NewSMTPFactory(cfg *config.MailConfig) ClientFactory {
	return func(ctx context.Context, creds Credentials) (Client, error) {
		d := gomail.NewDialer(cfg.Host, cfg.Port, creds.Address, creds.Secret)
		conn, err := d.Dial()
		if err != nil {
			return nil, fmt.Errorf("dial smtp %s:%d: %w", cfg.Host, cfg.Port, err)
		}
		return &smtpClient{conn: conn}, nil
	}
}

func (c *smtpClient) Send(ctx context.Context, msg *Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := messageID(msg.From)

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Reply-To", msg.ReplyTo)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)
	m.SetBody("text/html", msg.HTML)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := gomail.Send(c.conn, m); err != nil {
		return "", err
	}
	return id, nil
}

func (c *smtpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// messageID 形如 <uuid@发件域名>
func messageID(from string) string {
	domain := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		domain = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

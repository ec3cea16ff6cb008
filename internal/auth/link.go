package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/herbalshop/internal/config"
)

// 链接可操作的实体
const (
	EntityOrder   = "order"
	EntityProduct = "product"
)

// 链接动作，与路由最后一段一致
const (
	ActionApprove             = "approve"
	ActionReject              = "reject"
	ActionApproveCancellation = "approve-cancellation"
)

var (
	// ErrLinkInvalid 令牌缺失、签名错误、过期或与请求的实体/动作不符
	ErrLinkInvalid = errors.New("link invalid or expired")
	// ErrLinkUsed 令牌已被使用过
	ErrLinkUsed = errors.New("link already used")
)

// LinkClaims 免登录链接令牌，绑定实体、ID 和动作
type LinkClaims struct {
	Entity   string `json:"ent"`
	EntityID int64  `json:"eid"`
	Action   string `json:"act"`
	jwt.RegisteredClaims
}

// Links 签发和兑换邮件中的一次性操作链接
type Links struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	used    UsedTokens
	now     func() time.Time
}

// NewLinks 创建链接签发器
func NewLinks(cfg *config.LinksConfig, used UsedTokens) *Links {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Links{
		secret:  []byte(cfg.Secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		used:    used,
		now:     time.Now,
	}
}

// Issue 签发令牌
func (l *Links) Issue(entity string, id int64, action string) (string, error) {
	now := l.now()
	claims := LinkClaims{
		Entity:   entity,
		EntityID: id,
		Action:   action,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
}

// URL 生成完整链接，例如 /orders/12/approve?token=...
func (l *Links) URL(entity string, id int64, action string) (string, error) {
	token, err := l.Issue(entity, id, action)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%ss/%d/%s?token=%s", l.baseURL, entity, id, action, url.QueryEscape(token)), nil
}

// Redeem 校验令牌并标记为已使用，同一令牌只能成功兑换一次
func (l *Links) Redeem(ctx context.Context, token, entity string, id int64, action string) error {
	if token == "" {
		return ErrLinkInvalid
	}
	claims := &LinkClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLinkInvalid, err)
	}
	if claims.Entity != entity || claims.EntityID != id || claims.Action != action || claims.ID == "" {
		return ErrLinkInvalid
	}

	// 记录保留到令牌过期，过期后签名校验本身就会拒绝
	remaining := claims.ExpiresAt.Time.Sub(l.now())
	if remaining < time.Second {
		remaining = time.Second
	}
	first, err := l.used.Claim(ctx, claims.ID, remaining)
	if err != nil {
		return fmt.Errorf("claim link token: %w", err)
	}
	if !first {
		return ErrLinkUsed
	}
	return nil
}

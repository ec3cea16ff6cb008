package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/datamodels/setting"
)

// SettingService 后台设置读写，发件密码只返回掩码
type SettingService struct {
	repo setting.Repository
}

func NewSettingService(repo setting.Repository) *SettingService {
	return &SettingService{repo: repo}
}

// Get key 不存在时返回空值
func (s *SettingService) Get(ctx context.Context, key string) (*setting.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("setting key is required: %w", ErrInvalidInput)
	}
	v, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read setting %s: %w", key, err)
	}
	if key == setting.KeySenderSecret {
		v = maskSecret(v)
	}
	return &setting.Setting{Key: key, Value: v}, nil
}

// Set 写入后下一次发送即使用新值
func (s *SettingService) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 64 {
		return fmt.Errorf("setting key must be 1-64 characters: %w", ErrInvalidInput)
	}
	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	zap.L().Info("setting updated", zap.String("key", key))
	return nil
}

func maskSecret(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 4:
		return "****"
	default:
		return strings.Repeat("*", len(v)-2) + v[len(v)-2:]
	}
}

package memory

import (
	"context"

	"github.com/example/herbalshop/internal/datamodels/setting"
)

type settingRepo struct {
	s *Store
}

// NewSettingRepository 创建内存设置仓储
func NewSettingRepository(s *Store) setting.Repository {
	return &settingRepo{s: s}
}

func (r *settingRepo) Get(ctx context.Context, key string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.settings[key], nil
}

func (r *settingRepo) Upsert(ctx context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return nil
}

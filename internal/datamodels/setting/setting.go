package setting

import "context"

// 邮件发送账号与密码在设置表中的固定 key
const (
	KeySenderAddress = "adminEmail"
	KeySenderSecret  = "googlePassword"
)

// Setting 后台可修改的键值配置
type Setting struct {
	Key   string `gorm:"primaryKey;column:setting_key;size:64" json:"key"`
	Value string `gorm:"size:1024" json:"value"`
}

// Repository 设置仓储接口
type Repository interface {
	// Get key 不存在时返回空字符串和 nil
	Get(ctx context.Context, key string) (string, error)
	Upsert(ctx context.Context, key, value string) error
}

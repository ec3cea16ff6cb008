// Package memory 提供进程内仓储实现，用于本地调试（storage.driver=memory）和测试。
// 语义与 mysql 实现保持一致：记录不存在返回 gorm.ErrRecordNotFound，
// 条件更新未命中返回对应的 ErrStatusChanged。
package memory

import (
	"sync"
	"time"

	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/datamodels/review"
)

// Store 持有所有内存表
type Store struct {
	mu       sync.RWMutex
	seq      int64
	orders   map[int64]*order.Order
	products map[int64]*product.Product
	reviews  []*review.Review
	settings map[string]string
	now      func() time.Time
}

// NewStore 创建空的内存存储
func NewStore() *Store {
	return &Store{
		orders:   make(map[int64]*order.Order),
		products: make(map[int64]*product.Product),
		settings: make(map[string]string),
		now:      time.Now,
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

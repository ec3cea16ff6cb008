package review

import (
	"context"
	"time"
)

// Review 商品评价，创建后不可修改
type Review struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ProductID int64     `gorm:"index;not null" json:"productId"`
	UserEmail string    `gorm:"size:255" json:"userEmail"`
	UserName  string    `gorm:"size:128" json:"userName"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"size:2048" json:"comment"`
	Images    []string  `gorm:"serializer:json" json:"images"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// Repository 评价仓储接口
type Repository interface {
	Create(ctx context.Context, r *Review) error
	ListByProduct(ctx context.Context, productID int64) ([]*Review, error)
}

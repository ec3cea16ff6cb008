package order

import (
	"context"
	"errors"
	"time"
)

// Status 订单状态，取值与前端及历史数据保持一致
type Status string

const (
	StatusOrdered               Status = "Ordered"
	StatusPending               Status = "Pending" // 历史数据中的下单状态，等同于 Ordered
	StatusAccepted              Status = "Accepted"
	StatusRejected              Status = "Rejected"
	StatusShipped               Status = "Shipped"
	StatusDelivered             Status = "Delivered"
	StatusCancelled             Status = "Cancelled"
	StatusCancellationRequested Status = "Cancellation Requested"
)

// ErrStatusChanged 条件更新未命中：订单状态已被其他请求修改
var ErrStatusChanged = errors.New("order status changed concurrently")

// ShippingAddress 收货地址（自由结构，这里只保留常用字段）
type ShippingAddress struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Order 订单模型
type Order struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	ProductID       int64           `gorm:"index;not null" json:"productId"`
	ProductName     string          `gorm:"size:255" json:"productName"` // 下单时的商品名快照
	Quantity        int64           `gorm:"not null" json:"quantity"`
	Price           float64         `gorm:"not null" json:"price"` // 单价
	Variation       string          `gorm:"size:64" json:"variation,omitempty"`
	ShippingCost    float64         `json:"shippingCost"`
	Tax             float64         `json:"tax"`
	TotalAmount     float64         `json:"totalAmount"`
	UserEmail       string          `gorm:"size:255;index" json:"userEmail"`
	UserName        string          `gorm:"size:128" json:"userName"`
	Phone           string          `gorm:"size:32" json:"phone,omitempty"`
	ShippingAddress ShippingAddress `gorm:"serializer:json" json:"shippingAddress"`
	ShippingMethod  string          `gorm:"size:64" json:"shippingMethod,omitempty"`
	PaymentMethod   string          `gorm:"size:64" json:"paymentMethod,omitempty"`
	Status          Status          `gorm:"size:32;index;not null" json:"status"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// StatusChange 一次状态写入：只有当前状态等于 From 时才写入 To
// ShippedAt / DeliveredAt 非空时一并写入。
type StatusChange struct {
	From        Status
	To          Status
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// Repository 订单仓储接口
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByEmail(ctx context.Context, email string) ([]*Order, error)
	// ListRecent status 为空时不过滤
	ListRecent(ctx context.Context, status Status, limit int) ([]*Order, error)
	// UpdateStatus 条件更新，状态不匹配时返回 ErrStatusChanged
	UpdateStatus(ctx context.Context, id int64, change StatusChange) error
}

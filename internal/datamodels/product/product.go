package product

import (
	"context"
	"errors"
	"time"
)

// ApprovalStatus 商品审核状态
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "Pending"
	StatusApproved ApprovalStatus = "Approved"
	StatusRejected ApprovalStatus = "Rejected"
)

// ErrStatusChanged 条件更新未命中：审核状态已被其他请求修改
var ErrStatusChanged = errors.New("product status changed concurrently")

// Product 商品模型
type Product struct {
	ID          int64    `gorm:"primaryKey" json:"id"`
	Name        string   `gorm:"size:255;not null" json:"name"`
	Category    string   `gorm:"size:64;index" json:"category"`
	Price       float64  `gorm:"not null" json:"price"`
	Description string   `gorm:"size:2048" json:"description"`
	Image       string   `gorm:"size:255" json:"image"`
	Images      []string `gorm:"serializer:json" json:"images"`

	// 折扣窗口由外部 CRUD 维护
	DiscountAmount float64    `json:"discountAmount"`
	DiscountStart  *time.Time `json:"discountStart,omitempty"`
	DiscountEnd    *time.Time `json:"discountEnd,omitempty"`

	SubmittedBy     string         `gorm:"size:255" json:"submittedBy,omitempty"`
	Status          ApprovalStatus `gorm:"size:16;index;not null" json:"status"`
	ApprovedBy      string         `gorm:"size:255" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	RejectionReason string         `gorm:"size:512" json:"rejectionReason,omitempty"`
	RejectedAt      *time.Time     `json:"rejectedAt,omitempty"`

	AverageRating float64 `json:"averageRating"`
	RatingCount   int64   `json:"ratingCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Decision 一次审核结果写入，仅当当前状态为 Pending 时生效
type Decision struct {
	To              ApprovalStatus
	By              string
	At              time.Time
	RejectionReason string
}

// Repository 商品仓储接口
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	// List status 为空时返回全部
	List(ctx context.Context, status ApprovalStatus) ([]*Product, error)
	// Decide 条件更新，当前状态不是 Pending 时返回 ErrStatusChanged
	Decide(ctx context.Context, id int64, d Decision) error
	// RefreshRating 锁定商品行，读取该商品全部评分，用 compute 计算后写回平均分和评价数
	RefreshRating(ctx context.Context, id int64, compute RatingFunc) (float64, int64, error)
}

// RatingFunc 由评分列表计算平均分和评价数
type RatingFunc func(ratings []int) (float64, int64)

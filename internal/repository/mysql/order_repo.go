package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/herbalshop/internal/datamodels/order"
)

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) ListByEmail(ctx context.Context, email string) ([]*order.Order, error) {
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) ListRecent(ctx context.Context, status order.Status, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var list []*order.Order
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatus 以当前状态为条件更新，相当于一次 CAS
func (r *orderRepo) UpdateStatus(ctx context.Context, id int64, change order.StatusChange) error {
	updates := map[string]interface{}{"status": change.To}
	if change.ShippedAt != nil {
		updates["shipped_at"] = *change.ShippedAt
	}
	if change.DeliveredAt != nil {
		updates["delivered_at"] = *change.DeliveredAt
	}

	res := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("id = ? AND status = ?", id, change.From).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missOrChanged(ctx, id)
	}
	return nil
}

// missOrChanged 区分记录不存在和状态被抢先修改两种情况
func (r *orderRepo) missOrChanged(ctx context.Context, id int64) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return order.ErrStatusChanged
}

package memory

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/example/herbalshop/internal/datamodels/order"
)

type orderRepo struct {
	s *Store
}

// NewOrderRepository 创建内存订单仓储
func NewOrderRepository(s *Store) order.Repository {
	return &orderRepo{s: s}
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.ID = r.s.nextID()
	now := r.s.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	cp := *o
	r.s.orders[o.ID] = &cp
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *orderRepo) ListByEmail(ctx context.Context, email string) ([]*order.Order, error) {
	return r.list(func(o *order.Order) bool { return o.UserEmail == email }, 0), nil
}

func (r *orderRepo) ListRecent(ctx context.Context, status order.Status, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.list(func(o *order.Order) bool { return status == "" || o.Status == status }, limit), nil
}

func (r *orderRepo) list(match func(*order.Order) bool, limit int) []*order.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*order.Order, 0)
	for _, o := range r.s.orders {
		if match(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	// 新订单在前，创建时间相同按 ID 倒序
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id int64, change order.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if o.Status != change.From {
		return order.ErrStatusChanged
	}
	o.Status = change.To
	if change.ShippedAt != nil {
		t := *change.ShippedAt
		o.ShippedAt = &t
	}
	if change.DeliveredAt != nil {
		t := *change.DeliveredAt
		o.DeliveredAt = &t
	}
	o.UpdatedAt = r.s.now()
	return nil
}

package memory

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/example/herbalshop/internal/datamodels/product"
)

type productRepo struct {
	s *Store
}

// NewProductRepository 创建内存商品仓储
func NewProductRepository(s *Store) product.Repository {
	return &productRepo{s: s}
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.nextID()
	now := r.s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.s.products[p.ID] = cloneProduct(p)
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneProduct(p), nil
}

func (r *productRepo) List(ctx context.Context, status product.ApprovalStatus) ([]*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*product.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if status == "" || p.Status == status {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *productRepo) Decide(ctx context.Context, id int64, d product.Decision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.Status != product.StatusPending {
		return product.ErrStatusChanged
	}
	at := d.At
	p.Status = d.To
	switch d.To {
	case product.StatusApproved:
		p.ApprovedAt = &at
		p.ApprovedBy = d.By
	case product.StatusRejected:
		p.RejectedAt = &at
		p.RejectionReason = d.RejectionReason
	}
	p.UpdatedAt = r.s.now()
	return nil
}

// RefreshRating 读取评分和写回都在存储写锁内完成
func (r *productRepo) RefreshRating(ctx context.Context, id int64, compute product.RatingFunc) (float64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return 0, 0, gorm.ErrRecordNotFound
	}
	var ratings []int
	for _, rv := range r.s.reviews {
		if rv.ProductID == id {
			ratings = append(ratings, rv.Rating)
		}
	}
	p.AverageRating, p.RatingCount = compute(ratings)
	p.UpdatedAt = r.s.now()
	return p.AverageRating, p.RatingCount, nil
}

func cloneProduct(p *product.Product) *product.Product {
	cp := *p
	if p.Images != nil {
		cp.Images = append([]string(nil), p.Images...)
	}
	return &cp
}

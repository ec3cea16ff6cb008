package memory

import (
	"context"

	"github.com/example/herbalshop/internal/datamodels/review"
)

type reviewRepo struct {
	s *Store
}

// NewReviewRepository 创建内存评价仓储
func NewReviewRepository(s *Store) review.Repository {
	return &reviewRepo{s: s}
}

func (r *reviewRepo) Create(ctx context.Context, rv *review.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv.ID = r.s.nextID()
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = r.s.now()
	}
	cp := *rv
	r.s.reviews = append(r.s.reviews, &cp)
	return nil
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID int64) ([]*review.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*review.Review, 0)
	// 倒序遍历，新评价在前
	for i := len(r.s.reviews) - 1; i >= 0; i-- {
		if rv := r.s.reviews[i]; rv.ProductID == productID {
			cp := *rv
			out = append(out, &cp)
		}
	}
	return out, nil
}

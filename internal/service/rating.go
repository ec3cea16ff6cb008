package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/datamodels/review"
)

// Recompute 计算平均分（保留一位小数）和评价数，空列表返回 0, 0
func Recompute(ratings []int) (float64, int64) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return math.Round(avg*10) / 10, int64(len(ratings))
}

// ReviewService 评价写入与商品评分汇总
//
// 汇总由仓储在商品行锁下完成（读取全部评分、计算、写回），多实例之间串行；
// 进程内再按商品加一把锁，同一实例的并发请求不必都去数据库排队。
type ReviewService struct {
	reviews  review.Repository
	products product.Repository
	locks    *keyLock
}

func NewReviewService(reviews review.Repository, products product.Repository) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		locks:    newKeyLock(),
	}
}

// Submit 先持久化评价，再刷新评分；刷新失败只记录日志，评价仍然有效
func (s *ReviewService) Submit(ctx context.Context, r *review.Review) (*review.Review, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(r.UserEmail) == "" {
		return nil, fmt.Errorf("reviewer email is required: %w", ErrInvalidInput)
	}
	p, err := s.products.GetByID(ctx, r.ProductID)
	if err != nil {
		return nil, repoErr(err, "product", r.ProductID)
	}
	if p.Status != product.StatusApproved {
		return nil, fmt.Errorf("product %d: %w", r.ProductID, ErrNotFound)
	}

	r.ID = 0
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	if _, _, err := s.Refresh(ctx, r.ProductID); err != nil {
		zap.L().Error("refresh product rating",
			zap.Int64("product_id", r.ProductID),
			zap.Int64("review_id", r.ID),
			zap.Error(err))
	}
	return r, nil
}

// Refresh 按当前全部评价重算并写回商品
func (s *ReviewService) Refresh(ctx context.Context, productID int64) (float64, int64, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	avg, count, err := s.products.RefreshRating(ctx, productID, Recompute)
	if err != nil {
		return 0, 0, repoErr(err, "product", productID)
	}
	return avg, count, nil
}

func (s *ReviewService) List(ctx context.Context, productID int64) ([]*review.Review, error) {
	return s.reviews.ListByProduct(ctx, productID)
}

package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/datamodels/review"
)

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, status product.ApprovalStatus) ([]*product.Product, error) {
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var list []*product.Product
	if err := query.Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Decide(ctx context.Context, id int64, d product.Decision) error {
	updates := map[string]interface{}{"status": d.To}
	switch d.To {
	case product.StatusApproved:
		updates["approved_at"] = d.At
		updates["approved_by"] = d.By
	case product.StatusRejected:
		updates["rejected_at"] = d.At
		updates["rejection_reason"] = d.RejectionReason
	}

	res := r.db.WithContext(ctx).
		Model(&product.Product{}).
		Where("id = ? AND status = ?", id, product.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&product.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		return product.ErrStatusChanged
	}
	return nil
}

// RefreshRating 事务内 SELECT ... FOR UPDATE 锁住商品行，多实例并发写评价时汇总串行执行
func (r *productRepo) RefreshRating(ctx context.Context, id int64, compute product.RatingFunc) (float64, int64, error) {
	var (
		average float64
		count   int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p product.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&p, id).Error; err != nil {
			return err
		}

		var ratings []int
		if err := tx.Model(&review.Review{}).Where("product_id = ?", id).Pluck("rating", &ratings).Error; err != nil {
			return err
		}
		average, count = compute(ratings)

		// 评分未变化时 MySQL 返回的影响行数可能为 0，这里不据此判断记录是否存在
		return tx.Model(&product.Product{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"average_rating": average,
				"rating_count":   count,
			}).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return average, count, nil
}

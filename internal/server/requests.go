package server

import (
	"fmt"
	"time"

	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/datamodels/review"
)

type productRequest struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Price          float64  `json:"price"`
	Description    string   `json:"description"`
	Image          string   `json:"image"`
	Images         []string `json:"images"`
	DiscountAmount float64  `json:"discountAmount"`
	DiscountStart  string   `json:"discountStart"`
	DiscountEnd    string   `json:"discountEnd"`
}

func (r *productRequest) toProduct() (*product.Product, error) {
	p := &product.Product{
		Name:           r.Name,
		Category:       r.Category,
		Price:          r.Price,
		Description:    r.Description,
		Image:          r.Image,
		Images:         r.Images,
		DiscountAmount: r.DiscountAmount,
	}
	if p.Image == "" && len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	var err error
	if p.DiscountStart, err = parseOptionalTime(r.DiscountStart); err != nil {
		return nil, fmt.Errorf("discountStart: %w", err)
	}
	if p.DiscountEnd, err = parseOptionalTime(r.DiscountEnd); err != nil {
		return nil, fmt.Errorf("discountEnd: %w", err)
	}
	if p.DiscountStart != nil && p.DiscountEnd != nil && p.DiscountEnd.Before(*p.DiscountStart) {
		return nil, fmt.Errorf("discountEnd is before discountStart")
	}
	return p, nil
}

// parseOptionalTime 支持 RFC3339 和后台表单常用的 "2006-01-02 15:04"
func parseOptionalTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unsupported time format %q", v)
}

type orderRequest struct {
	ProductID       int64                 `json:"productId"`
	ProductName     string                `json:"productName"`
	Quantity        int64                 `json:"quantity"`
	Price           float64               `json:"price"`
	Variation       string                `json:"variation"`
	ShippingCost    float64               `json:"shippingCost"`
	Tax             float64               `json:"tax"`
	TotalAmount     float64               `json:"totalAmount"`
	Phone           string                `json:"phone"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	ShippingMethod  string                `json:"shippingMethod"`
	PaymentMethod   string                `json:"paymentMethod"`
}

// toOrder 买家身份取自登录令牌，不信任请求体
func (r *orderRequest) toOrder(email, name string) *order.Order {
	return &order.Order{
		ProductID:       r.ProductID,
		ProductName:     r.ProductName,
		Quantity:        r.Quantity,
		Price:           r.Price,
		Variation:       r.Variation,
		ShippingCost:    r.ShippingCost,
		Tax:             r.Tax,
		TotalAmount:     r.TotalAmount,
		UserEmail:       email,
		UserName:        name,
		Phone:           r.Phone,
		ShippingAddress: r.ShippingAddress,
		ShippingMethod:  r.ShippingMethod,
		PaymentMethod:   r.PaymentMethod,
	}
}

type reviewRequest struct {
	ProductID int64    `json:"productId"`
	Rating    int      `json:"rating"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images"`
}

func (r *reviewRequest) toReview(email, name string) *review.Review {
	return &review.Review{
		ProductID: r.ProductID,
		UserEmail: email,
		UserName:  name,
		Rating:    r.Rating,
		Comment:   r.Comment,
		Images:    r.Images,
	}
}

// statusRequest 后台修改订单状态，ExpectedStatus 可选
type statusRequest struct {
	Status         order.Status `json:"status"`
	ExpectedStatus order.Status `json:"expectedStatus"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type settingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type resendRequest struct {
	From string `json:"from"`
}

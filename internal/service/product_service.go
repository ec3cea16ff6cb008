package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/auth"
	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/infra/mq"
	"github.com/example/herbalshop/internal/metrics"
	"github.com/example/herbalshop/internal/notify"
)

// DefaultRejectionReason 驳回时未填写原因使用的默认文案
const DefaultRejectionReason = "Product does not meet store standards"

// ProductService 商品审核流程：Pending -> Approved / Rejected
type ProductService struct {
	repo     product.Repository
	notifier notify.Dispatcher
	links    LinkIssuer
	events   EventPublisher
	now      func() time.Time
}

func NewProductService(repo product.Repository, notifier notify.Dispatcher, links LinkIssuer, events EventPublisher) *ProductService {
	if events == nil {
		events = mq.Discard{}
	}
	return &ProductService{
		repo:     repo,
		notifier: notifier,
		links:    links,
		events:   events,
		now:      time.Now,
	}
}

// Get showAll 为 false 时只能看到已上架商品，其余状态按不存在处理
func (s *ProductService) Get(ctx context.Context, id int64, showAll bool) (*product.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, "product", id)
	}
	if !showAll && p.Status != product.StatusApproved {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, showAll bool) ([]*product.Product, error) {
	if showAll {
		return s.repo.List(ctx, "")
	}
	return s.repo.List(ctx, product.StatusApproved)
}

// CreateByAdmin 管理员直接上架，不经过审核
func (s *ProductService) CreateByAdmin(ctx context.Context, p *product.Product, admin string) (*product.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	now := s.now()
	p.ID = 0
	p.Status = product.StatusApproved
	p.ApprovedBy = admin
	p.ApprovedAt = &now
	p.RejectedAt, p.RejectionReason = nil, ""
	p.AverageRating, p.RatingCount = 0, 0
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	metrics.GetMonitor().RecordTransition("product", string(product.StatusApproved))
	publishEvent(ctx, s.events, mq.NewEvent("product", p.ID, "", string(p.Status), string(ActorAdmin)))
	return p, nil
}

// Submit 商家提交商品，进入 Pending 并通知管理员审核
func (s *ProductService) Submit(ctx context.Context, p *product.Product, submitter string) (*product.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.ID = 0
	p.Status = product.StatusPending
	p.SubmittedBy = submitter
	p.ApprovedBy, p.ApprovedAt = "", nil
	p.RejectedAt, p.RejectionReason = nil, ""
	p.AverageRating, p.RatingCount = 0, 0
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	metrics.GetMonitor().RecordTransition("product", string(product.StatusPending))
	publishEvent(ctx, s.events, mq.NewEvent("product", p.ID, "", string(p.Status), string(ActorUser)))
	s.notifyAdmin(ctx, p)
	return p, nil
}

// Approve 审核通过，by 为空表示通过邮件链接操作
func (s *ProductService) Approve(ctx context.Context, id int64, by string) (*product.Product, error) {
	return s.decide(ctx, id, product.Decision{To: product.StatusApproved, By: by})
}

// Reject 驳回，reason 为空时使用默认原因
func (s *ProductService) Reject(ctx context.Context, id int64, by, reason string) (*product.Product, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}
	return s.decide(ctx, id, product.Decision{To: product.StatusRejected, By: by, RejectionReason: reason})
}

func (s *ProductService) decide(ctx context.Context, id int64, d product.Decision) (*product.Product, error) {
	p, err := s.applyDecision(ctx, id, d)
	if err != nil {
		metrics.GetMonitor().RecordTransitionError("product", errKind(err))
	}
	return p, err
}

func (s *ProductService) applyDecision(ctx context.Context, id int64, d product.Decision) (*product.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, "product", id)
	}
	from := p.Status
	if from == d.To {
		return p, nil
	}
	if from != product.StatusPending {
		return nil, fmt.Errorf("product %d is already %q: %w", id, from, ErrInvalidTransition)
	}

	d.At = s.now()
	if err := s.repo.Decide(ctx, id, d); err != nil {
		return nil, repoErr(err, "product", id)
	}
	p.Status = d.To
	p.UpdatedAt = d.At
	if d.To == product.StatusApproved {
		p.ApprovedBy, p.ApprovedAt = d.By, &d.At
	} else {
		p.RejectionReason, p.RejectedAt = d.RejectionReason, &d.At
	}

	actor := ActorAdmin
	if d.By == "" {
		actor = ActorLink
	}
	zap.L().Info("product status changed",
		zap.Int64("product_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(d.To)),
		zap.String("actor", string(actor)))
	metrics.GetMonitor().RecordTransition("product", string(d.To))
	publishEvent(ctx, s.events, mq.NewEvent("product", id, string(from), string(d.To), string(actor)))
	s.notifySubmitter(ctx, p)
	return p, nil
}

func (s *ProductService) notifySubmitter(ctx context.Context, p *product.Product) {
	if p.SubmittedBy == "" {
		return
	}
	subject, tmpl := "Product Approved", "product_approved"
	if p.Status == product.StatusRejected {
		subject, tmpl = "Product Rejected", "product_rejected"
	}
	html, err := renderNotice(tmpl, noticeData{Product: p})
	if err != nil {
		zap.L().Error("compose product notification", zap.Int64("product_id", p.ID), zap.Error(err))
		return
	}
	dispatch(ctx, s.notifier, notify.Request{To: p.SubmittedBy, Subject: subject, HTML: html},
		zap.Int64("product_id", p.ID), zap.String("status", string(p.Status)))
}

func (s *ProductService) notifyAdmin(ctx context.Context, p *product.Product) {
	fields := []zap.Field{zap.Int64("product_id", p.ID), zap.String("status", string(p.Status))}
	to, err := s.notifier.Recipient(ctx)
	if err != nil {
		zap.L().Warn("read admin recipient", append(fields, zap.Error(err))...)
		return
	}
	if to == "" {
		zap.L().Warn("admin notification skipped: sender address not configured", fields...)
		return
	}
	data := noticeData{Product: p}
	if s.links != nil {
		if data.ApproveURL, err = s.links.URL(auth.EntityProduct, p.ID, auth.ActionApprove); err == nil {
			data.RejectURL, err = s.links.URL(auth.EntityProduct, p.ID, auth.ActionReject)
		}
		if err != nil {
			zap.L().Error("issue product links", append(fields, zap.Error(err))...)
			return
		}
	}
	html, err := renderNotice("product_submitted", data)
	if err != nil {
		zap.L().Error("compose admin notification", append(fields, zap.Error(err))...)
		return
	}
	dispatch(ctx, s.notifier, notify.Request{To: to, Subject: "New Product Submitted: " + p.Name, HTML: html, ReplyTo: p.SubmittedBy}, fields...)
}

func validateProduct(p *product.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required: %w", ErrInvalidInput)
	}
	if p.Price < 0 {
		return fmt.Errorf("product price must not be negative: %w", ErrInvalidInput)
	}
	return nil
}

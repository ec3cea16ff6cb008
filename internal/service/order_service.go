package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/auth"
	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/infra/mq"
	"github.com/example/herbalshop/internal/metrics"
	"github.com/example/herbalshop/internal/notify"
)

// LinkIssuer 生成邮件中的一次性操作链接
type LinkIssuer interface {
	URL(entity string, id int64, action string) (string, error)
}

// EventPublisher 投递生命周期事件，失败不影响状态变更
type EventPublisher interface {
	Publish(ctx context.Context, e mq.LifecycleEvent) error
}

// OrderService 订单生命周期状态机
//
// 每次变更先按当前状态做条件写入，写入成功后再投递事件和发送通知；
// 事件和通知失败只记日志，不回滚也不把请求报告为失败。
type OrderService struct {
	repo     order.Repository
	notifier notify.Dispatcher
	links    LinkIssuer
	events   EventPublisher
	now      func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(repo order.Repository, notifier notify.Dispatcher, links LinkIssuer, events EventPublisher) *OrderService {
	if events == nil {
		events = mq.Discard{}
	}
	return &OrderService{
		repo:     repo,
		notifier: notifier,
		links:    links,
		events:   events,
		now:      time.Now,
	}
}

// TransitionRequest 一次状态变更请求
type TransitionRequest struct {
	OrderID int64
	To      order.Status
	Actor   Actor
	// ExpectedFrom 非空时要求订单当前状态与之一致，否则返回 ErrConflict
	ExpectedFrom order.Status
}

// Get 查询订单
func (s *OrderService) Get(ctx context.Context, id int64) (*order.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoErr(err, "order", id)
	}
	return o, nil
}

// ListRecent 后台订单列表，可按状态过滤
func (s *OrderService) ListRecent(ctx context.Context, status order.Status, limit int) ([]*order.Order, error) {
	if status != "" && !KnownStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrInvalidInput)
	}
	return s.repo.ListRecent(ctx, status, limit)
}

// ListByEmail 用户自己的订单
func (s *OrderService) ListByEmail(ctx context.Context, email string) ([]*order.Order, error) {
	return s.repo.ListByEmail(ctx, email)
}

// Place 下单：以 Ordered 状态落库，然后通知管理员（附带审批链接）
func (s *OrderService) Place(ctx context.Context, o *order.Order) (*order.Order, error) {
	if o.ProductID <= 0 || o.Quantity <= 0 {
		return nil, fmt.Errorf("product and a positive quantity are required: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(o.UserEmail) == "" {
		return nil, fmt.Errorf("buyer email is required: %w", ErrInvalidInput)
	}
	o.ID = 0
	o.Status = order.StatusOrdered
	o.ShippedAt, o.DeliveredAt = nil, nil
	if o.TotalAmount <= 0 {
		o.TotalAmount = roundCents(o.Price*float64(o.Quantity) + o.ShippingCost + o.Tax)
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.GetMonitor().RecordTransition("order", string(order.StatusOrdered))
	s.publish(ctx, mq.NewEvent("order", o.ID, "", string(o.Status), string(ActorUser)))
	s.notifyAdmin(ctx, o, "New Order Received", "order_placed", auth.ActionApprove, auth.ActionReject)
	return o, nil
}

// Transition 按边表执行一次状态变更
func (s *OrderService) Transition(ctx context.Context, req TransitionRequest) (*order.Order, error) {
	o, err := s.transition(ctx, req)
	if err != nil {
		metrics.GetMonitor().RecordTransitionError("order", errKind(err))
	}
	return o, err
}

func (s *OrderService) transition(ctx context.Context, req TransitionRequest) (*order.Order, error) {
	if !KnownStatus(req.To) {
		return nil, fmt.Errorf("unknown status %q: %w", req.To, ErrInvalidTransition)
	}
	o, err := s.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	from := o.Status

	if req.ExpectedFrom != "" && req.ExpectedFrom != from {
		return nil, fmt.Errorf("order %d is %q, expected %q: %w", o.ID, from, req.ExpectedFrom, ErrConflict)
	}
	// 用户申请取消先校验源状态，已申请过的订单再次申请同样被拒绝
	if req.Actor == ActorUser && !isPlaced(from) {
		return nil, fmt.Errorf("order %d cannot be cancelled at status %q: %w", o.ID, from, ErrInvalidTransition)
	}
	if from == req.To {
		return o, nil
	}
	if !CanTransition(from, req.To, req.Actor) {
		return nil, fmt.Errorf("order %d: %s cannot move %q to %q: %w", o.ID, req.Actor, from, req.To, ErrInvalidTransition)
	}

	change := order.StatusChange{From: from, To: req.To}
	now := s.now()
	switch {
	case req.To == order.StatusShipped && o.ShippedAt == nil:
		change.ShippedAt = &now
	case req.To == order.StatusDelivered && o.DeliveredAt == nil:
		change.DeliveredAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, o.ID, change); err != nil {
		return nil, repoErr(err, "order", o.ID)
	}
	o.Status = req.To
	if change.ShippedAt != nil {
		o.ShippedAt = change.ShippedAt
	}
	if change.DeliveredAt != nil {
		o.DeliveredAt = change.DeliveredAt
	}
	o.UpdatedAt = now

	zap.L().Info("order status changed",
		zap.Int64("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(req.To)),
		zap.String("actor", string(req.Actor)))
	metrics.GetMonitor().RecordTransition("order", string(req.To))
	s.publish(ctx, mq.NewEvent("order", o.ID, string(from), string(req.To), string(req.Actor)))

	s.notifyBuyer(ctx, o, from)
	if req.To == order.StatusCancellationRequested {
		s.notifyAdmin(ctx, o, "Cancellation Request: User wants to cancel", "cancel_requested_admin", auth.ActionApproveCancellation, "")
	}
	return o, nil
}

// RequestCancellation 用户自助申请取消，只能操作自己的订单
func (s *OrderService) RequestCancellation(ctx context.Context, id int64, email string) (*order.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if email == "" || !strings.EqualFold(o.UserEmail, email) {
		// 不暴露他人订单是否存在；令牌里没有邮箱时同样按不存在处理
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return s.Transition(ctx, TransitionRequest{OrderID: id, To: order.StatusCancellationRequested, Actor: ActorUser})
}

// ApproveByLink / RejectByLink / ConfirmCancellationByLink 邮件链接入口，令牌已由调用方兑换

func (s *OrderService) ApproveByLink(ctx context.Context, id int64) (*order.Order, error) {
	return s.Transition(ctx, TransitionRequest{OrderID: id, To: order.StatusAccepted, Actor: ActorLink})
}

func (s *OrderService) RejectByLink(ctx context.Context, id int64) (*order.Order, error) {
	return s.Transition(ctx, TransitionRequest{OrderID: id, To: order.StatusRejected, Actor: ActorLink})
}

func (s *OrderService) ConfirmCancellationByLink(ctx context.Context, id int64) (*order.Order, error) {
	return s.Transition(ctx, TransitionRequest{
		OrderID:      id,
		To:           order.StatusCancelled,
		Actor:        ActorLink,
		ExpectedFrom: order.StatusCancellationRequested,
	})
}

// Resend 按订单当前状态重发买家通知，from 非空时以该地址作为发件人
// 与状态变更不同，发送失败直接返回给调用方。
func (s *OrderService) Resend(ctx context.Context, id int64, from string) (string, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	req, ok, err := orderStatusNotice(o, o.Status)
	if err != nil {
		return "", fmt.Errorf("compose order notification: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("order %d has no buyer notification at status %q: %w", id, o.Status, ErrInvalidInput)
	}
	req.From = strings.TrimSpace(from)
	msgID, err := s.notifier.Dispatch(ctx, req)
	if err != nil {
		return "", err
	}
	zap.L().Info("order notification resent",
		zap.Int64("order_id", id),
		zap.String("status", string(o.Status)),
		zap.String("from", req.From))
	return msgID, nil
}

func (s *OrderService) notifyBuyer(ctx context.Context, o *order.Order, from order.Status) {
	req, ok, err := orderStatusNotice(o, from)
	if err != nil {
		zap.L().Error("compose order notification", zap.Int64("order_id", o.ID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	dispatch(ctx, s.notifier, req, zap.Int64("order_id", o.ID), zap.String("status", string(o.Status)))
}

// notifyAdmin 管理员通知；approve/reject 为空时不生成对应链接
func (s *OrderService) notifyAdmin(ctx context.Context, o *order.Order, subject, tmpl, approve, reject string) {
	fields := []zap.Field{zap.Int64("order_id", o.ID), zap.String("status", string(o.Status))}
	to, err := s.notifier.Recipient(ctx)
	if err != nil {
		zap.L().Warn("read admin recipient", append(fields, zap.Error(err))...)
		return
	}
	if to == "" {
		zap.L().Warn("admin notification skipped: sender address not configured", fields...)
		return
	}

	data := noticeData{Order: o}
	if data.ApproveURL, err = s.linkURL(auth.EntityOrder, o.ID, approve); err == nil {
		data.RejectURL, err = s.linkURL(auth.EntityOrder, o.ID, reject)
	}
	if err != nil {
		zap.L().Error("issue order links", append(fields, zap.Error(err))...)
		return
	}
	html, err := renderNotice(tmpl, data)
	if err != nil {
		zap.L().Error("compose admin notification", append(fields, zap.Error(err))...)
		return
	}
	dispatch(ctx, s.notifier, notify.Request{To: to, Subject: subject, HTML: html, ReplyTo: o.UserEmail}, fields...)
}

func (s *OrderService) linkURL(entity string, id int64, action string) (string, error) {
	if action == "" || s.links == nil {
		return "", nil
	}
	return s.links.URL(entity, id, action)
}

func (s *OrderService) publish(ctx context.Context, e mq.LifecycleEvent) {
	publishEvent(ctx, s.events, e)
}

// dispatch 发送通知，未配置和发送失败都只记录日志
func dispatch(ctx context.Context, n notify.Dispatcher, req notify.Request, fields ...zap.Field) {
	fields = append(fields, zap.String("to", req.To), zap.String("subject", req.Subject))
	_, err := n.Dispatch(ctx, req)
	switch {
	case err == nil:
	case errors.Is(err, notify.ErrNotConfigured):
		zap.L().Warn("notification skipped: mail credentials not configured", fields...)
	default:
		zap.L().Error("notification failed", append(fields, zap.Error(err))...)
	}
}

func publishEvent(ctx context.Context, p EventPublisher, e mq.LifecycleEvent) {
	if err := p.Publish(ctx, e); err != nil {
		metrics.GetMonitor().RecordEvent("failed")
		zap.L().Warn("publish lifecycle event",
			zap.String("entity", e.Entity),
			zap.Int64("entity_id", e.EntityID),
			zap.String("to", e.To),
			zap.Error(err))
		return
	}
	metrics.GetMonitor().RecordEvent("published")
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

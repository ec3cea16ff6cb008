package server

import (
	"context"
	"errors"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/auth"
	"github.com/example/herbalshop/internal/config"
	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
	"github.com/example/herbalshop/internal/metrics"
	"github.com/example/herbalshop/internal/middleware"
	"github.com/example/herbalshop/internal/service"
)

// RegisterRoutes 注册前台 HTTP 路由：商城接口、用户接口和邮件中的免登录链接
func RegisterRoutes(app *iris.Application, cfg *config.Config, svc *Services) {
	requireUser := middleware.RequireUser(&cfg.JWT)
	optionalUser := middleware.OptionalUser(&cfg.JWT)
	linkLimit := middleware.LinkRateLimit(&cfg.Links)

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// ---------- 邮件链接 ----------

	app.Get("/orders/{id:int64}/approve", linkLimit, orderLink(cfg, svc, auth.ActionApprove, svc.Orders.ApproveByLink))
	app.Get("/orders/{id:int64}/reject", linkLimit, orderLink(cfg, svc, auth.ActionReject, svc.Orders.RejectByLink))
	app.Get("/orders/{id:int64}/approve-cancellation", linkLimit, orderLink(cfg, svc, auth.ActionApproveCancellation, svc.Orders.ConfirmCancellationByLink))

	app.Get("/products/{id:int64}/approve", linkLimit, productLink(cfg, svc, auth.ActionApprove))
	app.Get("/products/{id:int64}/reject", linkLimit, productLink(cfg, svc, auth.ActionReject))

	// ---------- 订单 ----------

	app.Post("/orders", requireUser, func(ctx iris.Context) {
		var req orderRequest
		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx, err.Error())
			return
		}
		o, err := svc.Orders.Place(ctx.Request().Context(), req.toOrder(middleware.UserEmail(ctx), middleware.UserName(ctx)))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	app.Get("/orders/mine", requireUser, func(ctx iris.Context) {
		list, err := svc.Orders.ListByEmail(ctx.Request().Context(), middleware.UserEmail(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	app.Put("/orders/{id:int64}/cancel-by-user", requireUser, func(ctx iris.Context) {
		id, valid := idParam(ctx, "id")
		if !valid {
			return
		}
		o, err := svc.Orders.RequestCancellation(ctx.Request().Context(), id, middleware.UserEmail(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// ---------- 商品 ----------

	// 商品列表，管理员带 showAll=1 时包含待审核和已驳回商品
	app.Get("/products", optionalUser, func(ctx iris.Context) {
		showAll := queryFlag(ctx, "showAll") && middleware.IsAdmin(ctx)
		list, err := svc.Products.List(ctx.Request().Context(), showAll)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	app.Get("/products/{id:int64}", optionalUser, func(ctx iris.Context) {
		id, valid := idParam(ctx, "id")
		if !valid {
			return
		}
		showAll := queryFlag(ctx, "showAll") && middleware.IsAdmin(ctx)
		p, err := svc.Products.Get(ctx.Request().Context(), id, showAll)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// 商家提交商品，等待审核
	app.Post("/products", requireUser, func(ctx iris.Context) {
		var req productRequest
		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx, err.Error())
			return
		}
		p, err := req.toProduct()
		if err != nil {
			badRequest(ctx, err.Error())
			return
		}
		p, err = svc.Products.Submit(ctx.Request().Context(), p, middleware.UserEmail(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// ---------- 评价 ----------

	app.Post("/reviews", requireUser, func(ctx iris.Context) {
		var req reviewRequest
		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx, err.Error())
			return
		}
		r, err := svc.Reviews.Submit(ctx.Request().Context(), req.toReview(middleware.UserEmail(ctx), middleware.UserName(ctx)))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, r)
	})

	app.Get("/reviews/{productId:int64}", func(ctx iris.Context) {
		id, valid := idParam(ctx, "productId")
		if !valid {
			return
		}
		list, err := svc.Reviews.List(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})
}

// redeemLink 兑换链接令牌并记录结果
func redeemLink(ctx iris.Context, links *auth.Links, entity string, id int64, action string) error {
	err := links.Redeem(ctx.Request().Context(), ctx.URLParam("token"), entity, id, action)
	switch {
	case err == nil:
		metrics.GetMonitor().RecordLinkToken("ok")
	case errors.Is(err, auth.ErrLinkUsed):
		metrics.GetMonitor().RecordLinkToken("used")
	case errors.Is(err, auth.ErrLinkInvalid):
		metrics.GetMonitor().RecordLinkToken("invalid")
	default:
		metrics.GetMonitor().RecordLinkToken("error")
		zap.L().Error("redeem link token",
			zap.String("entity", entity),
			zap.Int64("entity_id", id),
			zap.String("action", action),
			zap.Error(err))
	}
	return err
}

// linkRefusal 令牌不可用时给浏览器看的说明
func linkRefusal(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrLinkUsed):
		return iris.StatusForbidden, "This link has already been used."
	case errors.Is(err, auth.ErrLinkInvalid):
		return iris.StatusForbidden, "This link is invalid or has expired."
	default:
		return iris.StatusInternalServerError, "Unable to verify this link, please try again later."
	}
}

// orderLink 订单链接：成功后跳转到后台订单列表，失败返回纯文本
func orderLink(cfg *config.Config, svc *Services, action string, apply func(context.Context, int64) (*order.Order, error)) iris.Handler {
	return func(ctx iris.Context) {
		id, err := ctx.Params().GetInt64("id")
		if err != nil {
			ctx.StopWithText(iris.StatusNotFound, "Order not found")
			return
		}
		if err := redeemLink(ctx, svc.Links, auth.EntityOrder, id, action); err != nil {
			ctx.StopWithText(linkRefusal(err))
			return
		}
		if _, err := apply(ctx.Request().Context(), id); err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				ctx.StopWithText(iris.StatusNotFound, "Order not found")
			case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
				ctx.StopWithText(iris.StatusConflict, "This order can no longer be updated from its current status.")
			default:
				zap.L().Error("order link", zap.Int64("order_id", id), zap.String("action", action), zap.Error(err))
				ctx.StopWithText(iris.StatusInternalServerError, "Error updating order")
			}
			return
		}
		ctx.Redirect(cfg.Links.AdminConsoleURL, iris.StatusFound)
	}
}

// productLink 商品审核链接，结果以 HTML 页面返回
func productLink(cfg *config.Config, svc *Services, action string) iris.Handler {
	return func(ctx iris.Context) {
		id, err := ctx.Params().GetInt64("id")
		if err != nil {
			renderMessage(ctx, iris.StatusNotFound, "Not Found", "Product not found.")
			return
		}
		if err := redeemLink(ctx, svc.Links, auth.EntityProduct, id, action); err != nil {
			code, msg := linkRefusal(err)
			renderMessage(ctx, code, "Link Unavailable", msg)
			return
		}

		var p *product.Product
		if action == auth.ActionApprove {
			p, err = svc.Products.Approve(ctx.Request().Context(), id, "")
		} else {
			p, err = svc.Products.Reject(ctx.Request().Context(), id, "", ctx.URLParam("reason"))
		}
		switch {
		case err == nil && p.Status == product.StatusApproved:
			renderPage(ctx, iris.StatusOK, "product_approved", iris.Map{"name": p.Name, "storeURL": cfg.Links.StoreURL})
		case err == nil:
			renderPage(ctx, iris.StatusOK, "product_rejected", iris.Map{"name": p.Name, "reason": p.RejectionReason})
		case errors.Is(err, service.ErrNotFound):
			renderMessage(ctx, iris.StatusNotFound, "Not Found", "Product not found.")
		case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
			renderMessage(ctx, iris.StatusConflict, "Already Reviewed", "This product has already been reviewed.")
		default:
			zap.L().Error("product link", zap.Int64("product_id", id), zap.String("action", action), zap.Error(err))
			renderMessage(ctx, iris.StatusInternalServerError, "Error", "Error updating product.")
		}
	}
}

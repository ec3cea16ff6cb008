package server

import (
	"github.com/kataras/iris/v12"

	"github.com/example/herbalshop/internal/config"
	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/metrics"
	"github.com/example/herbalshop/internal/middleware"
	"github.com/example/herbalshop/internal/service"
)

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与前台 Web 服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config, svc *Services) {
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})
	app.Get("/metrics", iris.FromStd(metrics.Handler()))

	admin := app.Party("/admin", middleware.RequireAdmin(&cfg.JWT))

	// ---------- 订单管理 ----------

	admin.Get("/orders", func(ctx iris.Context) {
		status := order.Status(ctx.URLParam("status"))
		limit := ctx.URLParamIntDefault("limit", 50)
		list, err := svc.Orders.ListRecent(ctx.Request().Context(), status, limit)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	admin.Get("/orders/{id:int64}", func(ctx iris.Context) {
		id, valid := idParam(ctx, "id")
		if !valid {
			return
		}
		o, err := svc.Orders.Get(ctx.Request().Context(), id)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 修改订单状态，expectedStatus 用于防止覆盖其他管理员的操作
	admin.Put("/orders/{id:int64}", func(ctx iris.Context) {
		id, valid := idParam(ctx, "id")
		if !valid {
			return
		}
		var req statusRequest
		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx, err.Error())
			return
		}
		if req.Status == "" {
			badRequest(ctx, "status is required")
			return
		}
		o, err := svc.Orders.Transition(ctx.Request().Context(), service.TransitionRequest{
			OrderID:      id,
			To:           req.Status,
			Actor:        service.ActorAdmin,
			ExpectedFrom: req.ExpectedStatus,
		})
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, o)
	})

	// 重发买家通知，from 可指定发件地址
	admin.Post("/orders/{id:int64}/resend", func(ctx iris.Context) {
		id, valid := idParam(ctx, "id")
		if !valid {
			return
		}
		var req resendRequest
		if ctx.GetContentLength() > 0 {
			if err := ctx.ReadJSON(&req); err != nil {
				badRequest(ctx, err.Error())
				return
			}
		}
		msgID, err := svc.Orders.Resend(ctx.Request().Context(), id, req.From)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"messageId": msgID})
	})

	// ---------- 商品管理 ----------

	admin.Get("/products", func(ctx iris.Context) {
		list, err := svc.Products.List(ctx.Request().Context(), true)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, list)
	})

	// 后台创建的商品直接上架
	admin.Post("/products", func(ctx iris.Context) {
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
		p, err = svc.Products.CreateByAdmin(ctx.Request().Context(), p, middleware.UserEmail(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	admin.Put("/products/{id:int64}/approve", func(ctx iris.Context) {
		id, valid := idParam(ctx, "id")
		if !valid {
			return
		}
		p, err := svc.Products.Approve(ctx.Request().Context(), id, middleware.UserEmail(ctx))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	admin.Put("/products/{id:int64}/reject", func(ctx iris.Context) {
		id, valid := idParam(ctx, "id")
		if !valid {
			return
		}
		var req rejectRequest
		// 原因可以不填
		if ctx.GetContentLength() > 0 {
			if err := ctx.ReadJSON(&req); err != nil {
				badRequest(ctx, err.Error())
				return
			}
		}
		p, err := svc.Products.Reject(ctx.Request().Context(), id, middleware.UserEmail(ctx), req.Reason)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, p)
	})

	// ---------- 设置 ----------

	admin.Get("/settings/{key}", func(ctx iris.Context) {
		s, err := svc.Settings.Get(ctx.Request().Context(), ctx.Params().Get("key"))
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, s)
	})

	admin.Post("/settings", func(ctx iris.Context) {
		var req settingRequest
		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx, err.Error())
			return
		}
		if err := svc.Settings.Set(ctx.Request().Context(), req.Key, req.Value); err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, iris.Map{"key": req.Key})
	})
}

package server

import (
	"errors"
	"strconv"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/notify"
	"github.com/example/herbalshop/internal/service"
)

// statusOf 服务层错误对应的 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return iris.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
		return iris.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return iris.StatusBadRequest
	case errors.Is(err, notify.ErrNotConfigured):
		return iris.StatusServiceUnavailable
	case errors.Is(err, notify.ErrDeliveryFailure):
		return iris.StatusBadGateway
	default:
		return iris.StatusInternalServerError
	}
}

func fail(ctx iris.Context, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == iris.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Error(err))
		msg = "internal error"
	}
	ctx.StopWithJSON(code, iris.Map{"code": code, "msg": msg})
}

func badRequest(ctx iris.Context, msg string) {
	ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": iris.StatusBadRequest, "msg": msg})
}

func ok(ctx iris.Context, data interface{}) {
	ctx.JSON(iris.Map{"code": 0, "data": data})
}

func idParam(ctx iris.Context, name string) (int64, bool) {
	id, err := ctx.Params().GetInt64(name)
	if err != nil || id <= 0 {
		badRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryFlag(ctx iris.Context, name string) bool {
	v, err := strconv.ParseBool(ctx.URLParamDefault(name, "false"))
	return err == nil && v
}

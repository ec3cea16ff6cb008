package server

import (
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// renderPage 渲染 web/views/links 下的结果页
func renderPage(ctx iris.Context, code int, name string, data iris.Map) {
	ctx.StatusCode(code)
	if err := ctx.View("links/"+name+".html", data); err != nil {
		zap.L().Error("render link page", zap.String("page", name), zap.Error(err))
		if !ctx.IsStopped() {
			ctx.StopWithText(iris.StatusInternalServerError, "Internal error")
		}
	}
}

func renderMessage(ctx iris.Context, code int, title, msg string) {
	renderPage(ctx, code, "message", iris.Map{"title": title, "message": msg})
}

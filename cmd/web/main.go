package main

import (
	"log"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/config"
	"github.com/example/herbalshop/internal/logger"
	"github.com/example/herbalshop/internal/server"
	"github.com/example/herbalshop/web"
)

func main() {
	// 默认配置之上叠加 ./config/config.yaml 与 HERBAL_ 环境变量
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	l, err := logger.Init(&cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer l.Sync()

	svc, cleanup, err := server.Bootstrap(cfg)
	defer cleanup()
	if err != nil {
		zap.L().Fatal("bootstrap", zap.Error(err))
	}

	app := iris.New()
	// 邮件链接结果页使用 web/views 下打包的模板
	tmpl := web.NewViews()
	tmpl.Reload(cfg.Log.Development)
	app.RegisterView(tmpl)

	server.RegisterRoutes(app, cfg, svc)

	addr := cfg.Server.Addr()
	zap.L().Info("web server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		zap.L().Fatal("run web server", zap.Error(err))
	}
}

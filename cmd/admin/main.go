package main

import (
	"log"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/herbalshop/internal/config"
	"github.com/example/herbalshop/internal/logger"
	"github.com/example/herbalshop/internal/server"
)

func main() {
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
	server.RegisterAdminRoutes(app, cfg, svc)

	addr := cfg.AdminServer.Addr()
	zap.L().Info("admin server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		zap.L().Fatal("run admin server", zap.Error(err))
	}
}

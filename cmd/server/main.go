package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/bootstrap"
	"github.com/d60-Lab/cakeshop/pkg/logger"
	"github.com/d60-Lab/cakeshop/pkg/tracing"
)

// @title Cake Shop Order API
// @version 1.0
// @description 订单生命周期：下单、支付回调落单、状态流转、缺货标记与管理员登录
// @BasePath /
// @securityDefinitions.apikey AdminToken
// @in header
// @name X-Admin-Token
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(cfg.Server.Mode)

	sentryEnabled := false
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
			AttachStacktrace: true,
		}); err != nil {
			logger.Error("sentry init failed", zap.Error(err))
		} else {
			sentryEnabled = true
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	if app.DB != nil {
		if err := app.Migrate(ctx); err != nil {
			// 存储不可用时仍然启动，订单走兜底存储
			logger.Error("schema init failed", zap.Error(err))
		}
	}

	stopNotify := app.Dispatcher.Start()
	stopFlush := func(context.Context) error { return nil }
	if cfg.Transient.FlushInterval > 0 {
		stopFlush = app.Flusher.Start()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Router(sentryEnabled),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stopFlush(shutdownCtx); err != nil {
		logger.Warn("flusher stop", zap.Error(err))
	}
	if err := stopNotify(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err), zap.Int("pending", app.Dispatcher.QueueLen()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	if err := app.Close(); err != nil {
		logger.Warn("close", zap.Error(err))
	}
}

// Package bootstrap 按配置装配存储、服务与后台任务，供 server、cakectl 与压测工具共用。
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/api"
	"github.com/d60-Lab/cakeshop/internal/api/handler"
	"github.com/d60-Lab/cakeshop/internal/auth"
	"github.com/d60-Lab/cakeshop/internal/cache"
	"github.com/d60-Lab/cakeshop/internal/catalog"
	"github.com/d60-Lab/cakeshop/internal/gateway"
	"github.com/d60-Lab/cakeshop/internal/notify"
	"github.com/d60-Lab/cakeshop/internal/repository"
	"github.com/d60-Lab/cakeshop/internal/service"
	"github.com/d60-Lab/cakeshop/pkg/database"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

// App 进程内共享的组件
type App struct {
	Config *config.Config
	DB     *gorm.DB // 未配置 DSN 时为 nil
	Redis  *redis.Client

	Orders    *repository.GormOrderRepository
	Stock     *repository.GormStockRepository
	Guard     *repository.DBGuard
	Transient cache.TransientStore

	Resolver   *service.Resolver
	Reconcile  *service.ReconcileService
	OrderSvc   *service.OrderService
	StockSvc   *service.StockService
	Flusher    *service.TransientFlusher
	Dispatcher *notify.Dispatcher
	Payments   *gateway.Razorpay
	Admin      *auth.Service
}

// New 建立连接并装配服务；数据库不可达不是错误，订单走兜底存储
func New(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	transient, err := cache.New(cfg.Transient, rdb)
	if err != nil {
		return nil, err
	}
	pricer, err := service.NewPricer(cfg.Order.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("order.tax_rate: %w", err)
	}

	a := &App{Config: cfg, DB: db, Redis: rdb, Transient: transient}
	a.Orders = repository.NewOrderRepository(db,
		repository.WithLocation(cfg.Order.Location()),
		repository.WithCreateAttempts(cfg.Order.CreateAttempts))
	a.Stock = repository.NewStockRepository(db)
	a.Guard = repository.NewDBGuard(db, cfg.Database.ConnectTimeout)

	messenger := notify.NewTwilioMessenger(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppNumber)
	mailer := notify.NewResendMailer(cfg.Resend.APIKey, cfg.Resend.FromEmail)
	var channels []notify.Channel
	if cfg.Seller.WhatsAppNumber != "" {
		channels = append(channels, notify.WhatsAppChannel{Messenger: messenger, To: cfg.Seller.WhatsAppNumber})
	}
	if cfg.Seller.Email != "" {
		channels = append(channels, notify.EmailChannel{Mailer: mailer, To: cfg.Seller.Email})
	}
	a.Dispatcher = notify.NewDispatcher(notify.Options{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Attempts:  cfg.Notify.Attempts,
		Timeout:   cfg.Notify.Timeout,
	}, channels...)

	a.Resolver = service.NewResolver(a.Orders, transient, service.ResolverConfig{
		Attempts:         cfg.Order.LookupAttempts,
		Step:             cfg.Order.LookupStep,
		MaxDelay:         cfg.Order.LookupMaxDelay,
		DiagnosticSample: cfg.Order.DiagnosticSample,
	})
	a.Reconcile = service.NewReconcileService(a.Orders, a.Guard, transient, a.Resolver, a.Dispatcher, pricer,
		service.VerifyConfig{
			SettleDelay: cfg.Order.SettleDelay,
			Attempts:    cfg.Order.VerifyAttempts,
			Step:        cfg.Order.VerifyStep,
			MaxDelay:    cfg.Order.VerifyMaxDelay,
		})
	a.OrderSvc = service.NewOrderService(a.Orders, a.Resolver, pricer)
	a.StockSvc = service.NewStockService(a.Stock, catalog.New(cfg.Catalog.Products))
	a.Flusher = service.NewTransientFlusher(a.Orders, a.Guard, transient, cfg.Transient.FlushInterval)
	a.Payments = gateway.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Order.DefaultCurrency)

	var otps auth.OTPStore = auth.NewMemoryOTPStore()
	if rdb != nil {
		otps = auth.NewRedisOTPStore(rdb, cfg.Transient.KeyPrefix)
	}
	a.Admin = auth.NewService(cfg.Admin, otps, messenger)

	if !a.Payments.Configured() {
		logger.Warn("razorpay keys missing, payment order creation disabled")
	}
	return a, nil
}

// Router 装配 HTTP 路由
func (a *App) Router(sentryEnabled bool) *gin.Engine {
	h := handler.New(handler.Deps{
		Orders:    a.OrderSvc,
		Reconcile: a.Reconcile,
		Stock:     a.StockSvc,
		Repo:      a.Orders,
		Guard:     a.Guard,
		Payments:  a.Payments,
		Admin:     a.Admin,
		Debug:     a.Config.Server.Mode == "debug",
	})
	return api.NewRouter(h, a.Admin, api.RouterOptions{
		ServiceName: a.Config.Tracing.ServiceName,
		Sentry:      sentryEnabled,
		Tracing:     a.Config.Tracing.Enabled,
		Swagger:     a.Config.Server.Mode != "release",
		OTPRate:     rate.Limit(a.Config.Admin.OTPRate),
		OTPBurst:    a.Config.Admin.OTPBurst,
	})
}

// Close 释放数据库与 redis 连接
func (a *App) Close() error {
	var errs []error
	if err := a.Orders.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Migrate 创建订单与库存表
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		return repository.ErrStoreUnavailable
	}
	if err := a.Orders.InitSchema(ctx); err != nil {
		return err
	}
	logger.Info("schema ready", zap.String("driver", a.DB.Dialector.Name()))
	return nil
}

// Package api 组装 HTTP 路由与中间件链。
package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	_ "github.com/d60-Lab/cakeshop/docs"
	"github.com/d60-Lab/cakeshop/internal/api/handler"
	"github.com/d60-Lab/cakeshop/internal/auth"
	"github.com/d60-Lab/cakeshop/internal/middleware"
)

// RouterOptions 路由装配参数
type RouterOptions struct {
	ServiceName string
	Sentry      bool
	Tracing     bool
	Swagger     bool
	OTPRate     rate.Limit
	OTPBurst    int
}

// NewRouter 注册全部路由
func NewRouter(h *handler.Handler, admin *auth.Service, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RequestID(), middleware.Logger())

	r.GET("/health", h.Health)
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	burst := opts.OTPBurst
	if burst <= 0 {
		burst = 1
	}
	limit := opts.OTPRate
	if limit <= 0 {
		limit = rate.Inf
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health/db", h.DBHealth)
		v1.GET("/products", h.ListProducts)
		v1.GET("/stock/out-of-stock", h.ListOutOfStock)

		v1.POST("/payments/orders", h.CreatePaymentOrder)
		v1.GET("/payments/config", h.PaymentConfig)

		orders := v1.Group("/orders")
		orders.POST("", h.CreateOrder)
		orders.POST("/reconcile", h.ReconcileOrder)
		orders.GET("/:id", h.GetOrder)

		adm := v1.Group("/admin")
		adm.POST("/send-otp", middleware.RateLimit(limit, burst), h.SendOTP)
		adm.POST("/login", h.Login)

		secured := v1.Group("", middleware.AdminAuth(admin))
		secured.GET("/orders", h.ListOrders)
		secured.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		secured.PUT("/orders/:id", h.UpdateOrder)
		secured.DELETE("/orders/:id", h.DeleteOrder)
		secured.POST("/stock", h.SetStock)
	}
	return r
}

// Package middleware gin 中间件
package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/cakeshop/internal/auth"
	"github.com/d60-Lab/cakeshop/pkg/logger"
	"github.com/d60-Lab/cakeshop/pkg/response"
)

const (
	HeaderRequestID  = "X-Request-ID"
	HeaderAdminToken = "X-Admin-Token"

	ctxRequestID = "request_id"
	ctxAdmin     = "admin_claims"
)

// RequestID 透传或生成请求 id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Logger 访问日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// AdminAuth 校验 Authorization: Bearer 或 X-Admin-Token
func AdminAuth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderAdminToken)
		if h := c.GetHeader("Authorization"); token == "" && h != "" {
			if after, ok := strings.CutPrefix(h, "Bearer "); ok {
				token = strings.TrimSpace(after)
			}
		}
		if token == "" {
			response.Unauthorized(c, "admin token required")
			c.Abort()
			return
		}
		claims, err := svc.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid admin token")
			c.Abort()
			return
		}
		c.Set(ctxAdmin, claims)
		c.Next()
	}
}

// AdminClaims 当前请求的管理员身份
func AdminClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxAdmin)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// RateLimit 按客户端 IP 限流
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(r, burst)
			limiters[key] = l
		}
		return l
	}
	return func(c *gin.Context) {
		if !get(c.ClientIP()).Allow() {
			response.TooManyRequests(c, "too many requests, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}

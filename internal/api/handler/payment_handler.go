package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/internal/gateway"
	"github.com/d60-Lab/cakeshop/pkg/logger"
	"github.com/d60-Lab/cakeshop/pkg/response"
)

// CreatePaymentOrder 创建网关订单
// @Summary 创建 Razorpay 订单
// @Tags 支付
// @Accept json
// @Produce json
// @Param request body gateway.CreateOrderRequest true "金额（最小货币单位）"
// @Success 200 {object} response.Response{data=gateway.GatewayOrder}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/payments/orders [post]
func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	var req gateway.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	order, err := h.payments.CreateOrder(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, gateway.ErrNotConfigured) {
			logger.Error("razorpay keys missing")
		} else {
			logger.Error("create razorpay order failed", zap.Error(err))
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, order)
}

// PaymentConfig 网关配置检查（仅 debug 模式）
// @Summary 支付网关配置检查
// @Tags 支付
// @Produce json
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/payments/config [get]
func (h *Handler) PaymentConfig(c *gin.Context) {
	if !h.debug {
		response.Forbidden(c, "not available in release mode")
		return
	}
	configured := false
	if rp, ok := h.payments.(*gateway.Razorpay); ok {
		configured = rp.Configured()
	}
	response.Success(c, gin.H{"configured": configured})
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/internal/service"
	"github.com/d60-Lab/cakeshop/pkg/response"
)

type createOrderRequest struct {
	Items    []model.LineItem `json:"items" binding:"required,min=1,dive"`
	Delivery model.Delivery   `json:"delivery"`
	Subtotal *int64           `json:"subtotal"`
	Tax      *int64           `json:"tax"`
	Total    *int64           `json:"total"`
}

// reconcileRequest 兼容旧客户端的 orderId/paymentId 字段
type reconcileRequest struct {
	RazorpayOrderID   string           `json:"razorpayOrderId"`
	RazorpayPaymentID string           `json:"razorpayPaymentId"`
	OrderID           string           `json:"orderId"`
	PaymentID         string           `json:"paymentId"`
	Amount            *int64           `json:"amount"`
	Subtotal          *int64           `json:"subtotal"`
	Tax               *int64           `json:"tax"`
	Items             []model.LineItem `json:"items" binding:"required,min=1,dive"`
	Customer          model.Delivery   `json:"customer"`
}

type updateStatusRequest struct {
	OrderStatus model.OrderStatus `json:"orderStatus" binding:"required,oneof=pending preparing out_for_delivery delivered"`
}

// CreateOrder 创建待支付订单
// @Summary 创建订单（待支付）
// @Tags 订单
// @Accept json
// @Produce json
// @Param request body createOrderRequest true "订单信息"
// @Success 201 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /api/v1/orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	order, err := h.orders.CreatePending(c.Request.Context(), service.CreateOrderRequest{
		Items:    req.Items,
		Delivery: req.Delivery,
		Subtotal: req.Subtotal,
		Tax:      req.Tax,
		Total:    req.Total,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, order)
}

// ReconcileOrder 支付成功后保存订单
// @Summary 支付成功对账并保存订单
// @Description 数据库不可用时订单进入临时存储（TEMP- 前缀），persisted=false
// @Tags 订单
// @Accept json
// @Produce json
// @Param request body reconcileRequest true "支付回调与订单信息"
// @Success 200 {object} response.Response{data=service.ReconcileResult}
// @Failure 400 {object} response.Response
// @Router /api/v1/orders/reconcile [post]
func (h *Handler) ReconcileOrder(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if req.RazorpayOrderID == "" {
		req.RazorpayOrderID = req.OrderID
	}
	if req.RazorpayPaymentID == "" {
		req.RazorpayPaymentID = req.PaymentID
	}

	res, err := h.reconcile.Reconcile(c.Request.Context(), service.ReconcileRequest{
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		Amount:            req.Amount,
		Subtotal:          req.Subtotal,
		Tax:               req.Tax,
		Items:             req.Items,
		Customer:          req.Customer,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}

// GetOrder 查询订单（订单号或网关订单号）
// @Summary 查询订单
// @Tags 订单
// @Produce json
// @Param id path string true "订单号 / Razorpay 订单号 / TEMP 号"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 404 {object} response.Response{data=service.NotFoundError}
// @Failure 503 {object} response.Response
// @Router /api/v1/orders/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 全部订单
// @Summary 订单列表（管理员）
// @Tags 订单
// @Produce json
// @Security AdminToken
// @Success 200 {object} response.Response{data=[]model.Order}
// @Failure 401 {object} response.Response
// @Router /api/v1/orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	response.Success(c, orders)
}

// UpdateOrderStatus 修改履约状态
// @Summary 修改订单状态（管理员）
// @Tags 订单
// @Accept json
// @Produce json
// @Security AdminToken
// @Param id path string true "订单号"
// @Param request body updateStatusRequest true "新状态"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/orders/{id}/status [patch]
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.OrderStatus)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, order)
}

// UpdateOrder 稀疏更新
// @Summary 更新订单（管理员）
// @Description 只更新请求中出现的字段；订单行、网关编号不可修改
// @Tags 订单
// @Accept json
// @Produce json
// @Security AdminToken
// @Param id path string true "订单号"
// @Param request body model.OrderUpdate true "待更新字段"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/orders/{id} [put]
func (h *Handler) UpdateOrder(c *gin.Context) {
	var upd model.OrderUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		bindFailed(c, err)
		return
	}
	order, err := h.orders.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, order)
}

// DeleteOrder 删除订单
// @Summary 删除订单（管理员）
// @Tags 订单
// @Security AdminToken
// @Param id path string true "订单号"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/orders/{id} [delete]
func (h *Handler) DeleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

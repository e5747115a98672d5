package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/internal/repository"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

const maxCustomMessage = 100

// CreateOrderRequest 未支付订单的创建请求
type CreateOrderRequest struct {
	Items    []model.LineItem `json:"items"`
	Delivery model.Delivery   `json:"delivery"`
	Subtotal *int64           `json:"subtotal,omitempty"`
	Tax      *int64           `json:"tax,omitempty"`
	Total    *int64           `json:"total,omitempty"`
}

// OrderService 订单的读写入口（对账之外的路径）
type OrderService struct {
	orders   repository.OrderRepository
	resolver *Resolver
	pricer   Pricer
}

func NewOrderService(orders repository.OrderRepository, resolver *Resolver, pricer Pricer) *OrderService {
	return &OrderService{orders: orders, resolver: resolver, pricer: pricer}
}

// CreatePending 创建待支付订单；不走兜底存储，存储错误直接返回
func (s *OrderService) CreatePending(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	errs := validateItems(req.Items)
	errs = append(errs, validateDelivery("delivery", req.Delivery)...)
	if err := errs.orNil(); err != nil {
		return nil, err
	}

	totals := s.pricer.Totals(req.Items, req.Subtotal, req.Tax, req.Total)
	if totals.Mismatch() {
		logger.Warn("caller subtotal differs from items",
			zap.Int64("subtotal", totals.Subtotal), zap.Int64("computed", totals.Computed))
	}
	return s.orders.Create(ctx, model.OrderDraft{
		Items:         req.Items,
		Delivery:      req.Delivery,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentStatus: model.PaymentPending,
		OrderStatus:   model.OrderPending,
	})
}

// Get 按订单号或网关订单号查询，带重试
func (s *OrderService) Get(ctx context.Context, id string) (*model.Order, error) {
	return s.resolver.Resolve(ctx, id)
}

func (s *OrderService) List(ctx context.Context) ([]*model.Order, error) {
	return s.orders.List(ctx)
}

// UpdateStatus 修改履约状态，不校验流转方向
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	return s.Update(ctx, id, model.OrderUpdate{OrderStatus: &status})
}

// Update 稀疏更新
func (s *OrderService) Update(ctx context.Context, id string, upd model.OrderUpdate) (*model.Order, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}
	order, err := s.orders.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	logger.Info("order updated", zap.String("order_id", order.ID), zap.String("order_status", string(order.OrderStatus)))
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	deleted, err := s.orders.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	logger.Info("order deleted", zap.String("order_id", id))
	return nil
}

func validateItems(items []model.LineItem) ValidationErrors {
	if len(items) == 0 {
		return ValidationErrors{invalid("items", "at least one item is required")}
	}
	var errs ValidationErrors
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case !model.ValidWeight(it.Weight):
			errs = append(errs, invalid(field+".weight", "must be one of "+strings.Join(model.Weights, ", ")))
		case it.Quantity <= 0:
			errs = append(errs, invalid(field+".quantity", "must be greater than 0"))
		case it.PricePerUnit < 0:
			errs = append(errs, invalid(field+".pricePerUnit", "must not be negative"))
		case len([]rune(it.CustomMessage)) > maxCustomMessage:
			errs = append(errs, invalid(field+".customMessage", "must be at most 100 characters"))
		}
	}
	return errs
}

func validateDelivery(prefix string, d model.Delivery) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, invalid(prefix+".name", "required"))
	}
	if strings.TrimSpace(d.Phone) == "" {
		errs = append(errs, invalid(prefix+".phone", "required"))
	}
	if strings.TrimSpace(d.Address) == "" {
		errs = append(errs, invalid(prefix+".address", "required"))
	}
	return errs
}

func validateUpdate(upd model.OrderUpdate) error {
	var errs ValidationErrors
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		errs = append(errs, invalid("paymentStatus", "unknown payment status"))
	}
	if upd.OrderStatus != nil && !upd.OrderStatus.Valid() {
		errs = append(errs, invalid("orderStatus", "unknown order status"))
	}
	if upd.Delivery != nil {
		errs = append(errs, validateDelivery("delivery", *upd.Delivery)...)
	}
	return errs.orNil()
}

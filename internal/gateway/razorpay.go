// Package gateway 支付网关客户端
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
)

// ErrNotConfigured 未配置网关密钥
var ErrNotConfigured = errors.New("payment gateway not configured")

// CreateOrderRequest 金额为最小货币单位
type CreateOrderRequest struct {
	Amount   int64             `json:"amount" binding:"required,gt=0"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayOrder 网关侧订单
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client 支付网关
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error)
}

// orderCreator razorpay SDK 中我们用到的部分
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay 基于官方 SDK 的实现
type Razorpay struct {
	orders          orderCreator
	defaultCurrency string
}

func NewRazorpay(keyID, keySecret, defaultCurrency string) *Razorpay {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	r := &Razorpay{defaultCurrency: defaultCurrency}
	if keyID != "" && keySecret != "" {
		r.orders = razorpay.NewClient(keyID, keySecret).Order
	}
	return r
}

// Configured 是否配置了密钥
func (r *Razorpay) Configured() bool { return r.orders != nil }

func (r *Razorpay) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	if r.orders == nil {
		return nil, ErrNotConfigured
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = r.defaultCurrency
	}
	if req.Receipt == "" {
		req.Receipt = "rcpt_" + uuid.NewString()[:8]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := r.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return decodeOrder(body, req), nil
}

func decodeOrder(body map[string]interface{}, req CreateOrderRequest) *GatewayOrder {
	o := &GatewayOrder{Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt}
	if v, ok := body["id"].(string); ok {
		o.ID = v
	}
	if v, ok := body["status"].(string); ok {
		o.Status = v
	}
	// JSON 数字解码为 float64
	if v, ok := body["amount"].(float64); ok {
		o.Amount = int64(v)
	}
	if v, ok := body["currency"].(string); ok && v != "" {
		o.Currency = v
	}
	if v, ok := body["receipt"].(string); ok && v != "" {
		o.Receipt = v
	}
	return o
}

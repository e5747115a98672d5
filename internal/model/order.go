package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// OrderStatus 订单履约状态；不强制单调流转
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderPreparing      OrderStatus = "preparing"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPreparing, OrderOutForDelivery, OrderDelivered:
		return true
	}
	return false
}

// Weights 可选蛋糕规格，顺序即展示顺序
var Weights = []string{"250gm", "0.5kg", "1kg", "2kg"}

// ValidWeight 是否为可选规格
func ValidWeight(w string) bool {
	for _, v := range Weights {
		if v == w {
			return true
		}
	}
	return false
}

// LineItem 订单行
type LineItem struct {
	CakeID        int    `json:"cakeId" binding:"required,gt=0"`
	CakeName      string `json:"cakeName" binding:"required"`
	Weight        string `json:"weight" binding:"required,oneof=250gm 0.5kg 1kg 2kg"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	PricePerUnit  int64  `json:"pricePerUnit" binding:"gte=0"`
	CustomMessage string `json:"customMessage,omitempty" binding:"max=100"`
}

// Delivery 配送信息，整体以 JSON 存储
type Delivery struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	PostalCode   string `json:"postalCode,omitempty"`
	DeliveryDate string `json:"deliveryDate,omitempty"`
	TimeWindow   string `json:"timeWindow,omitempty"`
}

// Order 订单模型
type Order struct {
	ID                string                         `json:"id" gorm:"primaryKey;type:text"`
	Items             datatypes.JSONType[[]LineItem] `json:"items" gorm:"not null"`
	Delivery          datatypes.JSONType[Delivery]   `json:"delivery" gorm:"not null"`
	Subtotal          int64                          `json:"subtotal" gorm:"not null"`
	Tax               int64                          `json:"tax" gorm:"not null"`
	Total             int64                          `json:"total" gorm:"not null"`
	PaymentStatus     PaymentStatus                  `json:"paymentStatus" gorm:"type:text;not null"`
	OrderStatus       OrderStatus                    `json:"orderStatus" gorm:"type:text;not null"`
	RazorpayOrderID   *string                        `json:"razorpayOrderId,omitempty" gorm:"type:text;uniqueIndex:uniq_orders_razorpay_order_id,where:razorpay_order_id IS NOT NULL"`
	RazorpayPaymentID *string                        `json:"razorpayPaymentId,omitempty" gorm:"type:text"`
	CreatedAt         time.Time                      `json:"createdAt" gorm:"index;not null"`
	UpdatedAt         time.Time                      `json:"updatedAt" gorm:"not null"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// LineItems 返回订单行
func (o *Order) LineItems() []LineItem { return o.Items.Data() }

// DeliveryDetails 返回配送信息
func (o *Order) DeliveryDetails() Delivery { return o.Delivery.Data() }

// GatewayOrderID 返回网关订单号，未设置时为空串
func (o *Order) GatewayOrderID() string {
	if o.RazorpayOrderID == nil {
		return ""
	}
	return *o.RazorpayOrderID
}

// IsTransient 是否为仅存在于进程内存中的兜底订单
func (o *Order) IsTransient() bool { return IsTransientID(o.ID) }

// OrderDraft 创建订单的输入（不含 id 与时间戳）
type OrderDraft struct {
	Items             []LineItem
	Delivery          Delivery
	Subtotal          int64
	Tax               int64
	Total             int64
	PaymentStatus     PaymentStatus
	OrderStatus       OrderStatus
	RazorpayOrderID   string
	RazorpayPaymentID string
}

// Build 以给定 id 和时间生成完整订单
func (d OrderDraft) Build(id string, now time.Time) *Order {
	return &Order{
		ID:                id,
		Items:             datatypes.NewJSONType(d.Items),
		Delivery:          datatypes.NewJSONType(d.Delivery),
		Subtotal:          d.Subtotal,
		Tax:               d.Tax,
		Total:             d.Total,
		PaymentStatus:     d.PaymentStatus,
		OrderStatus:       d.OrderStatus,
		RazorpayOrderID:   optional(d.RazorpayOrderID),
		RazorpayPaymentID: optional(d.RazorpayPaymentID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// DraftFrom 由已有订单还原创建输入，用于兜底订单落库
func DraftFrom(o *Order) OrderDraft {
	return OrderDraft{
		Items:             o.LineItems(),
		Delivery:          o.DeliveryDetails(),
		Subtotal:          o.Subtotal,
		Tax:               o.Tax,
		Total:             o.Total,
		PaymentStatus:     o.PaymentStatus,
		OrderStatus:       o.OrderStatus,
		RazorpayOrderID:   o.GatewayOrderID(),
		RazorpayPaymentID: deref(o.RazorpayPaymentID),
	}
}

// OrderUpdate 稀疏更新：只有非 nil 字段会被写入。
// id、createdAt、items 与网关编号不在可更新范围内。
type OrderUpdate struct {
	PaymentStatus *PaymentStatus `json:"paymentStatus,omitempty"`
	OrderStatus   *OrderStatus   `json:"orderStatus,omitempty"`
	Delivery      *Delivery      `json:"delivery,omitempty"`
	Subtotal      *int64         `json:"subtotal,omitempty"`
	Tax           *int64         `json:"tax,omitempty"`
	Total         *int64         `json:"total,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

const (
	orderIDPrefix     = "ORD-"
	transientIDPrefix = "TEMP-"
	dateKeyLayout     = "20060102"
)

// DateKey 订单号中的日期段
func DateKey(day time.Time) string { return day.Format(dateKeyLayout) }

// FormatOrderID 生成 ORD-YYYYMMDD-NNNN
func FormatOrderID(day time.Time, seq int) string {
	return fmt.Sprintf("%s%s-%04d", orderIDPrefix, DateKey(day), seq)
}

// OrderIDPrefix 某天订单号的公共前缀，如 ORD-20250101-
func OrderIDPrefix(day time.Time) string {
	return orderIDPrefix + DateKey(day) + "-"
}

// ParseOrderSeq 解析订单号中的日期段与序号
func ParseOrderSeq(id string) (dateKey string, seq int, ok bool) {
	rest, found := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(id)), orderIDPrefix)
	if !found {
		return "", 0, false
	}
	dateKey, seqStr, found := strings.Cut(rest, "-")
	if !found || len(dateKey) != len(dateKeyLayout) {
		return "", 0, false
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil || seq <= 0 {
		return "", 0, false
	}
	return dateKey, seq, true
}

// NewTransientID 生成兜底订单号 TEMP-<毫秒时间戳>，不保证跨重启唯一
func NewTransientID(now time.Time) string {
	return fmt.Sprintf("%s%d", transientIDPrefix, now.UnixMilli())
}

func IsTransientID(id string) bool { return strings.HasPrefix(id, transientIDPrefix) }

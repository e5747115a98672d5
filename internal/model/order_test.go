package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAndParseOrderID(t *testing.T) {
	day := time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)
	id := FormatOrderID(day, 7)
	assert.Equal(t, "ORD-20250309-0007", id)
	assert.Equal(t, "ORD-20250309-", OrderIDPrefix(day))

	key, seq, ok := ParseOrderSeq(id)
	assert.True(t, ok)
	assert.Equal(t, "20250309", key)
	assert.Equal(t, 7, seq)

	_, seq, ok = ParseOrderSeq(" ord-20250309-12345 ")
	assert.True(t, ok)
	assert.Equal(t, 12345, seq)

	for _, bad := range []string{"", "TEMP-1700000000000", "ORD-2025-0001", "ORD-20250309-x", "ORD-20250309-0000"} {
		_, _, ok := ParseOrderSeq(bad)
		assert.False(t, ok, bad)
	}
}

func TestTransientID(t *testing.T) {
	id := NewTransientID(time.UnixMilli(1700000000123))
	assert.Equal(t, "TEMP-1700000000123", id)
	assert.True(t, IsTransientID(id))
	assert.False(t, IsTransientID("ORD-20250309-0001"))
}

func TestDraftBuild(t *testing.T) {
	now := time.Now()
	o := OrderDraft{
		Items:           []LineItem{{CakeID: 1, CakeName: "Vanilla", Weight: "1kg", Quantity: 2, PricePerUnit: 500}},
		Delivery:        Delivery{Name: "A", Phone: "1", Address: "X"},
		Subtotal:        1000,
		Tax:             50,
		Total:           1050,
		PaymentStatus:   PaymentPaid,
		OrderStatus:     OrderPending,
		RazorpayOrderID: "order_1",
	}.Build("ORD-20250309-0001", now)

	assert.Equal(t, "Vanilla", o.LineItems()[0].CakeName)
	assert.Equal(t, "A", o.DeliveryDetails().Name)
	assert.Equal(t, "order_1", o.GatewayOrderID())
	assert.Nil(t, o.RazorpayPaymentID)
	assert.Equal(t, now, o.CreatedAt)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
	assert.False(t, o.IsTransient())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, OrderOutForDelivery.Valid())
	assert.False(t, OrderStatus("shipped").Valid())
	assert.True(t, PaymentFailed.Valid())
	assert.False(t, PaymentStatus("refunded").Valid())
}

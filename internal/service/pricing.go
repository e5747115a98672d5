package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/d60-Lab/cakeshop/internal/model"
)

// DefaultTaxRate 5%
const DefaultTaxRate = "0.05"

// Pricer 以最小货币单位计算小计与税额
type Pricer struct {
	rate decimal.Decimal
}

func NewPricer(rate string) (Pricer, error) {
	if rate == "" {
		rate = DefaultTaxRate
	}
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return Pricer{}, fmt.Errorf("invalid tax rate %q: %w", rate, err)
	}
	if d.IsNegative() {
		return Pricer{}, fmt.Errorf("invalid tax rate %q: negative", rate)
	}
	return Pricer{rate: d}, nil
}

// Subtotal 按订单行重新计算小计
func (p Pricer) Subtotal(items []model.LineItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.PricePerUnit * int64(it.Quantity)
	}
	return sum
}

// Tax round(subtotal × rate)，.5 进位
func (p Pricer) Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(p.rate).Round(0).IntPart()
}

// Totals 订单金额；Computed 为按订单行重新计算的小计
type Totals struct {
	Subtotal int64
	Tax      int64
	Total    int64
	Computed int64
}

// Mismatch 调用方小计与重新计算的结果不一致
func (t Totals) Mismatch() bool { return t.Subtotal != t.Computed }

// Totals 调用方给出的值原样采用，缺省时按订单行推导
func (p Pricer) Totals(items []model.LineItem, subtotal, tax, total *int64) Totals {
	t := Totals{Computed: p.Subtotal(items)}
	t.Subtotal = t.Computed
	if subtotal != nil {
		t.Subtotal = *subtotal
	}
	t.Tax = p.Tax(t.Subtotal)
	if tax != nil {
		t.Tax = *tax
	}
	t.Total = t.Subtotal + t.Tax
	if total != nil {
		t.Total = *total
	}
	return t
}

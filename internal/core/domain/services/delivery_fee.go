package services

import (
	"orderflow/internal/core/domain/model/kernel"

	"github.com/shopspring/decimal"
)

// DeliveryFeeCalculator computes what a courier earns for a delivered order:
// a base fee plus a share of the order total, capped.
type DeliveryFeeCalculator struct {
	base kernel.Money
	rate decimal.Decimal
	cap  kernel.Money
}

// NewDeliveryFeeCalculator returns the standard tariff: 5.00 + 15% of total, at most 20.00.
func NewDeliveryFeeCalculator() DeliveryFeeCalculator {
	return DeliveryFeeCalculator{
		base: kernel.MustMoney("5.00"),
		rate: decimal.RequireFromString("0.15"),
		cap:  kernel.MustMoney("20.00"),
	}
}

// CourierFee returns min(base + rate*total, cap).
func (c DeliveryFeeCalculator) CourierFee(total kernel.Money) kernel.Money {
	return c.base.Add(total.Percent(c.rate)).Min(c.cap)
}

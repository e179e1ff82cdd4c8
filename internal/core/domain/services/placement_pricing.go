package services

import (
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/shopspring/decimal"
)

// Quote is the fee and tax part of a new order's totals.
type Quote struct {
	Fees kernel.Money
	Tax  kernel.Money
}

// PlacementPricing prices an order at placement. Delivery orders pay a flat delivery fee;
// tax is a share of the item subtotal.
type PlacementPricing struct {
	deliveryFee kernel.Money
	taxRate     decimal.Decimal
}

// NewPlacementPricing returns the default tariff: 5.00 delivery fee and 8% tax.
func NewPlacementPricing() PlacementPricing {
	return PlacementPricing{
		deliveryFee: kernel.MustMoney("5.00"),
		taxRate:     decimal.RequireFromString("0.08"),
	}
}

func (p PlacementPricing) Quote(channel order.Channel, subtotal kernel.Money) Quote {
	fees := kernel.ZeroMoney()
	if channel == order.ChannelDelivery {
		fees = p.deliveryFee
	}
	return Quote{
		Fees: fees,
		Tax:  subtotal.Percent(p.taxRate),
	}
}

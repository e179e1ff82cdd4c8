package services_test

import (
	"testing"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
)

func TestPlacementPricing_Quote(t *testing.T) {
	pricing := services.NewPlacementPricing()

	t.Run("delivery pays the delivery fee", func(t *testing.T) {
		q := pricing.Quote(order.ChannelDelivery, kernel.MustMoney("25.00"))

		assert.Equal(t, "5.00", q.Fees.String())
		assert.Equal(t, "2.00", q.Tax.String())
	})

	t.Run("pickup and dine-in pay tax only", func(t *testing.T) {
		for _, ch := range []order.Channel{order.ChannelPickup, order.ChannelDineIn} {
			q := pricing.Quote(ch, kernel.MustMoney("12.50"))

			assert.True(t, q.Fees.IsZero(), ch)
			assert.Equal(t, "1.00", q.Tax.String(), ch)
		}
	})
}

package subscribers

import (
	"context"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

const CourierPoolName = "courier_pool"

// CourierPool announces delivery orders to idle couriers once the food is ready.
type CourierPool struct {
	couriers ports.CourierAssignment
}

func NewCourierPool(couriers ports.CourierAssignment) *CourierPool {
	return &CourierPool{couriers: couriers}
}

func (c *CourierPool) Name() string { return CourierPoolName }

func (c *CourierPool) Handle(ctx context.Context, e *event.LifecycleEvent) error {
	if e.Type() != event.OrderReady || e.Snapshot().Channel != order.ChannelDelivery.String() {
		return nil
	}
	return c.couriers.NotifyAvailable(ctx, e.OrderID())
}

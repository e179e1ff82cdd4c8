package subscribers

import (
	"context"
	"errors"
	"slices"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/ports"
)

const (
	RealtimeName       = "realtime"
	KitchenDisplayName = "kitchen_display"
)

// Realtime pushes every event to the restaurant dashboard and to the customer.
type Realtime struct {
	broadcaster ports.RealtimeBroadcaster
}

func NewRealtime(broadcaster ports.RealtimeBroadcaster) *Realtime {
	return &Realtime{broadcaster: broadcaster}
}

func (r *Realtime) Name() string { return RealtimeName }

func (r *Realtime) Handle(ctx context.Context, e *event.LifecycleEvent) error {
	payload, err := encode(e)
	if err != nil {
		return err
	}
	snapshot := e.Snapshot()
	return errors.Join(
		r.broadcaster.Publish(ctx, ports.RestaurantTopic(snapshot.RestaurantID), payload),
		r.broadcaster.Publish(ctx, ports.CustomerTopic(snapshot.CustomerID), payload),
	)
}

// KitchenDisplay feeds the kitchen screen of the restaurant. The kitchen only cares
// about orders it has to cook or stop cooking.
type KitchenDisplay struct {
	broadcaster ports.RealtimeBroadcaster
}

func NewKitchenDisplay(broadcaster ports.RealtimeBroadcaster) *KitchenDisplay {
	return &KitchenDisplay{broadcaster: broadcaster}
}

func (k *KitchenDisplay) Name() string { return KitchenDisplayName }

func (k *KitchenDisplay) Handle(ctx context.Context, e *event.LifecycleEvent) error {
	relevant := []event.Type{
		event.OrderPlaced, event.OrderAccepted, event.OrderPreparing,
		event.OrderReady, event.OrderCancelled, event.OrderRejected,
	}
	if !slices.Contains(relevant, e.Type()) {
		return nil
	}
	payload, err := encode(e)
	if err != nil {
		return err
	}
	return k.broadcaster.Publish(ctx, ports.KitchenTopic(e.Snapshot().RestaurantID), payload)
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/event"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
)

// numberAttempts is how often a fresh order number is drawn after a collision.
const numberAttempts = 3

// PlaceOrderCommandHandler creates orders. Product names and prices are looked up in
// the catalog once and copied onto the order; totals are derived from them.
//
// Cash and dine-in orders start PLACED and get an order.placed event right away.
// Online-paid orders start PENDING and get theirs when payment capture is confirmed.
type PlaceOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	catalog    ports.CatalogLookup
	pricing    services.PlacementPricing
	dispatcher ports.EventDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewPlaceOrderCommandHandler creates a handler for order placement.
func NewPlaceOrderCommandHandler(
	uowFactory OrderUoWFactory,
	catalog ports.CatalogLookup,
	dispatcher ports.EventDispatcher,
	logger *slog.Logger,
) *PlaceOrderCommandHandler {
	return &PlaceOrderCommandHandler{
		uowFactory: uowFactory,
		catalog:    catalog,
		pricing:    services.NewPlacementPricing(),
		dispatcher: dispatcher,
		logger:     logger.With("component", "place_order"),
		now:        time.Now,
	}
}

// Handle places the order and returns it as persisted.
func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	items, err := h.lookupItems(ctx, cmd.Lines())
	if err != nil {
		return nil, err
	}

	var lastErr error
	for range numberAttempts {
		o, e, err := h.create(ctx, cmd, items)
		if errors.Is(err, ports.ErrOrderNumberTaken) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		h.logger.InfoContext(ctx, "order placed",
			"order_id", o.ID().String(),
			"order_number", o.Number(),
			"status", o.Status().String(),
			"total", o.Totals().Total().String(),
		)
		if e != nil && !h.dispatcher.Enqueue(e) {
			h.logger.WarnContext(ctx, "dispatch queue full, event left for redispatch",
				"order_id", o.ID().String(), "event_id", e.ID().String())
		}
		return o, nil
	}
	return nil, lastErr
}

func (h *PlaceOrderCommandHandler) lookupItems(ctx context.Context, lines []OrderLine) ([]order.Item, error) {
	items := make([]order.Item, 0, len(lines))
	for _, line := range lines {
		ci, err := h.catalog.GetItem(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !ci.Available {
			return nil, errs.NewValueIsInvalidErrorWithCause("product",
				fmt.Errorf("%s (%s) is not available", ci.Name, line.ProductID))
		}

		item, err := order.NewItem(ci.ProductID, ci.Name, line.Quantity, ci.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (h *PlaceOrderCommandHandler) create(
	ctx context.Context,
	cmd PlaceOrderCommand,
	items []order.Item,
) (*order.Order, *event.LifecycleEvent, error) {
	subtotal := kernel.ZeroMoney()
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	quote := h.pricing.Quote(cmd.Channel(), subtotal)

	now := h.now().UTC()
	o, err := order.NewOrder(order.Draft{
		ID:            kernel.NewUUID(),
		Number:        order.NewNumber(now),
		RestaurantID:  cmd.RestaurantID(),
		CustomerID:    cmd.CustomerID(),
		Channel:       cmd.Channel(),
		PaymentMethod: cmd.PaymentMethod(),
		Items:         items,
		Fees:          quote.Fees,
		Tax:           quote.Tax,
		Discount:      cmd.Discount(),
		PlacedBy:      cmd.PlacedBy(),
		CreatedAt:     now,
	})
	if err != nil {
		return nil, nil, err
	}

	var e *event.LifecycleEvent
	if o.Status() == order.Placed {
		if e, err = event.FromPlacement(o); err != nil {
			return nil, nil, err
		}
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, o); err != nil {
		return nil, nil, err
	}
	if e != nil {
		if err = uow.EventRepository().Add(ctx, e); err != nil {
			return nil, nil, err
		}
	}
	if err = uow.Commit(ctx); err != nil {
		return nil, nil, err
	}

	o.MarkPersisted(1)
	return o, e, nil
}

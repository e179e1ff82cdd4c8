// Package courierpool implements ports.CourierAssignment: ready delivery orders are
// announced on the "couriers" real-time topic and delivered orders are paid into the
// courier's wallet.
package courierpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/adapters/out/postgres/courierrepo"
	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
)

// AvailableEvent is the event name couriers receive for a ready order.
const AvailableEvent = "order.available"

type announcement struct {
	Event   string    `json:"event"`
	OrderID string    `json:"orderId"`
	At      time.Time `json:"at"`
}

type Pool struct {
	wallets     *courierrepo.GormWalletRepository
	broadcaster ports.RealtimeBroadcaster
	logger      *slog.Logger
	now         func() time.Time
}

func NewPool(wallets *courierrepo.GormWalletRepository, broadcaster ports.RealtimeBroadcaster, logger *slog.Logger) *Pool {
	return &Pool{
		wallets:     wallets,
		broadcaster: broadcaster,
		logger:      logger.With("component", "courier_pool"),
		now:         time.Now,
	}
}

// NotifyAvailable tells every connected courier that orderID waits for pickup.
func (p *Pool) NotifyAvailable(ctx context.Context, orderID kernel.UUID) error {
	payload, err := json.Marshal(announcement{Event: AvailableEvent, OrderID: orderID.String(), At: p.now().UTC()})
	if err != nil {
		return err
	}
	return p.broadcaster.Publish(ctx, ports.TopicCouriers, payload)
}

// Credit books the delivery fee of orderID into the courier's wallet, opening the
// wallet on first use. Crediting an order twice is a no-op.
func (p *Pool) Credit(ctx context.Context, courierID, orderID kernel.UUID, amount kernel.Money) error {
	credited := false
	err := p.wallets.InTransaction(ctx, func(repo *courierrepo.GormWalletRepository) error {
		w, err := repo.Get(ctx, courierID, orderID)
		isNew := errors.Is(err, errs.ErrObjectNotFound)
		if isNew {
			w, err = courier.NewWallet(courierID)
		}
		if err != nil {
			return err
		}
		if w.HasCredited(orderID) {
			return nil
		}

		if _, err = w.CreditDelivery(orderID, amount, fmt.Sprintf("delivery fee for order %s", orderID), p.now()); err != nil {
			return err
		}
		credited = true
		if isNew {
			return repo.Add(ctx, w)
		}
		return repo.Update(ctx, w)
	})
	if err != nil {
		return err
	}

	if credited {
		p.logger.InfoContext(ctx, "courier credited",
			"courier_id", courierID.String(), "order_id", orderID.String(), "amount", amount.String())
	}
	return nil
}

var _ ports.CourierAssignment = (*Pool)(nil)

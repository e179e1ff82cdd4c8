package commands

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// paymentUpdaterAttempts is how often a payment-only change is retried on version conflicts.
const paymentUpdaterAttempts = 3

// paymentUpdater applies payment-status changes that carry no status transition, such
// as a refund landing or a webhook confirming capture.
type paymentUpdater struct {
	uowFactory OrderUoWFactory
}

func newPaymentUpdater(uowFactory OrderUoWFactory) *paymentUpdater {
	return &paymentUpdater{uowFactory: uowFactory}
}

func (u *paymentUpdater) load(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	return u.uowFactory.Create().OrderRepository().Get(ctx, id)
}

// update reloads the order, applies mutate and writes it back, retrying lost races.
func (u *paymentUpdater) update(
	ctx context.Context,
	id kernel.UUID,
	mutate func(*order.Order) error,
) (*order.Order, error) {
	var lastErr error
	for range paymentUpdaterAttempts {
		o, err := u.load(ctx, id)
		if err != nil {
			return nil, err
		}

		before := o.PaymentStatus()
		if err = mutate(o); err != nil {
			return nil, err
		}
		if o.PaymentStatus() == before {
			return o, nil
		}

		err = persist(ctx, u.uowFactory, o, nil)
		if errors.Is(err, errs.ErrVersionIsInvalid) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, errors.Join(ErrConflict, lastErr)
}

package commands

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// Default expiry windows.
const (
	DefaultPaymentTimeout    = 15 * time.Minute
	DefaultAcceptanceTimeout = 10 * time.Minute
	DefaultExpiryBatchSize   = 100
)

var ErrExpireOrdersCommandIsNotConstructed = errors.New(
	"ExpireOrdersCommand must be created via NewExpireOrdersCommand constructor",
)

// ExpireOrdersCommand closes orders nobody acted on: PENDING orders whose payment never
// arrived are cancelled, PLACED orders the restaurant never accepted are rejected.
type ExpireOrdersCommand struct { //nolint:recvcheck //using for validation
	paymentTimeout    time.Duration
	acceptanceTimeout time.Duration
	batchSize         int

	guard guard.ConstructorGuard
}

func NewExpireOrdersCommand(paymentTimeout, acceptanceTimeout time.Duration, batchSize int) (ExpireOrdersCommand, error) {
	var errList []error
	if paymentTimeout <= 0 {
		errList = append(errList, errs.NewValueIsOutOfRangeError("payment timeout", paymentTimeout, "0s", "unbounded"))
	}
	if acceptanceTimeout <= 0 {
		errList = append(errList, errs.NewValueIsOutOfRangeError("acceptance timeout", acceptanceTimeout, "0s", "unbounded"))
	}
	if batchSize < 1 {
		errList = append(errList, errs.NewValueIsOutOfRangeError("batch size", batchSize, 1, "unbounded"))
	}
	if err := errors.Join(errList...); err != nil {
		return ExpireOrdersCommand{}, fmt.Errorf("expire orders: %w", err)
	}

	return ExpireOrdersCommand{
		paymentTimeout:    paymentTimeout,
		acceptanceTimeout: acceptanceTimeout,
		batchSize:         batchSize,
		guard:             guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c ExpireOrdersCommand) Validate() error {
	return c.guard.Validate(ErrExpireOrdersCommandIsNotConstructed)
}

func (c ExpireOrdersCommand) PaymentTimeout() time.Duration {
	return c.paymentTimeout
}

func (c ExpireOrdersCommand) AcceptanceTimeout() time.Duration {
	return c.acceptanceTimeout
}

func (c ExpireOrdersCommand) BatchSize() int {
	return c.batchSize
}

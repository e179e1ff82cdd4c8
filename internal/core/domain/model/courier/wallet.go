package courier

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var (
	// ErrWalletIsNotConstructed is returned when using a Wallet built outside
	// NewWallet or RestoreWallet.
	ErrWalletIsNotConstructed = errors.New("Wallet must be created via NewWallet or RestoreWallet")

	// ErrAlreadyCredited is returned when a delivery fee for the same order was
	// already booked.
	ErrAlreadyCredited = errors.New("order already credited")
)

// Wallet is the aggregate root holding what the platform owes one courier.
//
// Business rules:
//   - balance and totalEarned only grow through CreditDelivery
//   - one delivery fee per order; a second credit fails with ErrAlreadyCredited
//   - each credit appends a Transaction with the balance before and after
//
// Example usage:
//
//	w, err := courier.NewWallet(courierID)
//	if err != nil {
//	    return err
//	}
//	tx, err := w.CreditDelivery(orderID, fee, "delivery fee for ORD-1", time.Now())
type Wallet struct {
	// courierID is the identity of the wallet
	courierID kernel.UUID

	balance     kernel.Money
	totalEarned kernel.Money

	// credited holds the orders already paid out that the loader knew about
	credited map[string]struct{}

	// pending are transactions not yet written by the repository
	pending []Transaction

	guard guard.ConstructorGuard
}

// NewWallet opens an empty wallet for a courier.
func NewWallet(courierID kernel.UUID) (*Wallet, error) {
	if err := courierID.Validate(); err != nil {
		return nil, err
	}
	return &Wallet{
		courierID:   courierID,
		balance:     kernel.ZeroMoney(),
		totalEarned: kernel.ZeroMoney(),
		credited:    map[string]struct{}{},
		guard:       guard.NewConstructorGuard(),
	}, nil
}

// RestoreWallet reconstructs a wallet from storage. credited lists the orders that
// already have a delivery fee; a loader may pass only the orders it is about to credit.
func RestoreWallet(courierID kernel.UUID, balance, totalEarned kernel.Money, credited []kernel.UUID) (*Wallet, error) {
	if err := errors.Join(courierID.Validate(), balance.Validate(), totalEarned.Validate()); err != nil {
		return nil, err
	}
	if balance.GreaterThan(totalEarned) {
		return nil, errs.NewValueIsInvalidErrorWithCause("balance",
			fmt.Errorf("balance %s exceeds total earned %s", balance, totalEarned))
	}

	w := &Wallet{
		courierID:   courierID,
		balance:     balance,
		totalEarned: totalEarned,
		credited:    make(map[string]struct{}, len(credited)),
		guard:       guard.NewConstructorGuard(),
	}
	for _, id := range credited {
		w.credited[id.String()] = struct{}{}
	}
	return w, nil
}

// Validate checks that the wallet was built by a constructor.
func (w *Wallet) Validate() error {
	if w == nil {
		return ErrWalletIsNotConstructed
	}
	return w.guard.Validate(ErrWalletIsNotConstructed)
}

func (w *Wallet) CourierID() kernel.UUID {
	return w.courierID
}

func (w *Wallet) Balance() kernel.Money {
	return w.balance
}

func (w *Wallet) TotalEarned() kernel.Money {
	return w.totalEarned
}

// HasCredited reports whether a delivery fee for orderID is known to be booked.
func (w *Wallet) HasCredited(orderID kernel.UUID) bool {
	_, ok := w.credited[orderID.String()]
	return ok
}

// CreditDelivery books the delivery fee of one order.
//
// Returns:
//   - Transaction: the ledger line, also kept in PendingTransactions
//   - error: ErrAlreadyCredited for a repeated order, a validation error for a
//     zero or invalid amount
func (w *Wallet) CreditDelivery(orderID kernel.UUID, amount kernel.Money, description string, at time.Time) (Transaction, error) {
	if err := w.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := errors.Join(orderID.Validate(), amount.Validate()); err != nil {
		return Transaction{}, err
	}
	if amount.IsZero() {
		return Transaction{}, errs.NewValueIsRequiredError("amount")
	}
	if w.HasCredited(orderID) {
		return Transaction{}, fmt.Errorf("%w: %s", ErrAlreadyCredited, orderID)
	}

	before := w.balance
	w.balance = w.balance.Add(amount)
	w.totalEarned = w.totalEarned.Add(amount)
	w.credited[orderID.String()] = struct{}{}

	id := orderID
	tx := Transaction{
		id:            kernel.NewUUID(),
		courierID:     w.courierID,
		orderID:       &id,
		kind:          TransactionDeliveryFee,
		amount:        amount,
		balanceBefore: before,
		balanceAfter:  w.balance,
		description:   description,
		createdAt:     at.UTC(),
		guard:         guard.NewConstructorGuard(),
	}
	w.pending = append(w.pending, tx)
	return tx, nil
}

// PendingTransactions returns the transactions booked since the wallet was loaded.
func (w *Wallet) PendingTransactions() []Transaction {
	return append([]Transaction(nil), w.pending...)
}

// MarkPersisted forgets pending transactions once the repository wrote them.
func (w *Wallet) MarkPersisted() {
	w.pending = nil
}

package courier

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// ErrTransactionIsNotConstructed indicates a Transaction built outside NewTransaction
// or RestoreTransaction.
var ErrTransactionIsNotConstructed = errors.New("Transaction must be created via Wallet.CreditDelivery or RestoreTransaction")

// TransactionType classifies a wallet movement. Only delivery fees exist today;
// bonuses and fines from the back office would be new types.
type TransactionType string

const (
	// TransactionDeliveryFee is the fee earned for delivering an order.
	TransactionDeliveryFee TransactionType = "DELIVERY_FEE"
)

// Validate reports whether t is a known transaction type.
func (t TransactionType) Validate() error {
	switch t {
	case TransactionDeliveryFee:
		return nil
	default:
		return errs.NewValueIsInvalidError("transaction type")
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// Transaction is one line in a courier's wallet ledger. It is created by the wallet
// and never changes afterwards.
type Transaction struct {
	id            kernel.UUID
	courierID     kernel.UUID
	orderID       *kernel.UUID
	kind          TransactionType
	amount        kernel.Money
	balanceBefore kernel.Money
	balanceAfter  kernel.Money
	description   string
	createdAt     time.Time

	guard guard.ConstructorGuard
}

// RestoreTransaction rebuilds a ledger line from storage.
func RestoreTransaction(
	id, courierID kernel.UUID,
	orderID *kernel.UUID,
	kind TransactionType,
	amount, balanceBefore, balanceAfter kernel.Money,
	description string,
	createdAt time.Time,
) (Transaction, error) {
	var orderErr error
	if orderID != nil {
		orderErr = orderID.Validate()
	}
	if err := errors.Join(
		id.Validate(),
		courierID.Validate(),
		orderErr,
		kind.Validate(),
		amount.Validate(),
		balanceBefore.Validate(),
		balanceAfter.Validate(),
	); err != nil {
		return Transaction{}, err
	}
	if !balanceBefore.Add(amount).IsEqual(balanceAfter) {
		return Transaction{}, errs.NewValueIsInvalidError("balance after")
	}

	return Transaction{
		id:            id,
		courierID:     courierID,
		orderID:       orderID,
		kind:          kind,
		amount:        amount,
		balanceBefore: balanceBefore,
		balanceAfter:  balanceAfter,
		description:   description,
		createdAt:     createdAt,
		guard:         guard.NewConstructorGuard(),
	}, nil
}

func (t Transaction) Validate() error {
	return t.guard.Validate(ErrTransactionIsNotConstructed)
}

func (t Transaction) ID() kernel.UUID { return t.id }
func (t Transaction) CourierID() kernel.UUID { return t.courierID }
func (t Transaction) OrderID() *kernel.UUID { return t.orderID }
func (t Transaction) Type() TransactionType { return t.kind }
func (t Transaction) Amount() kernel.Money { return t.amount }
func (t Transaction) BalanceBefore() kernel.Money { return t.balanceBefore }
func (t Transaction) BalanceAfter() kernel.Money { return t.balanceAfter }
func (t Transaction) Description() string { return t.description }
func (t Transaction) CreatedAt() time.Time { return t.createdAt }

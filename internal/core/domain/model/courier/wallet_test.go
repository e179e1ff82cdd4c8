package courier_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	t.Run("should open an empty wallet", func(t *testing.T) {
		id := kernel.NewUUID()

		w, err := courier.NewWallet(id)

		require.NoError(t, err)
		require.NoError(t, w.Validate())
		assert.True(t, w.CourierID().IsEqual(id))
		assert.True(t, w.Balance().IsZero())
		assert.True(t, w.TotalEarned().IsZero())
		assert.Empty(t, w.PendingTransactions())
	})

	t.Run("should reject an empty courier id", func(t *testing.T) {
		_, err := courier.NewWallet(kernel.UUID{})

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		var w *courier.Wallet

		require.ErrorIs(t, w.Validate(), courier.ErrWalletIsNotConstructed)
	})
}

func TestWallet_CreditDelivery(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("should add the fee and record the balance change", func(t *testing.T) {
		w, err := courier.RestoreWallet(kernel.NewUUID(), kernel.MustMoney("10.00"), kernel.MustMoney("25.00"), nil)
		require.NoError(t, err)
		orderID := kernel.NewUUID()

		tx, err := w.CreditDelivery(orderID, kernel.MustMoney("9.50"), "delivery fee", at)

		require.NoError(t, err)
		assert.Equal(t, "19.50", w.Balance().String())
		assert.Equal(t, "34.50", w.TotalEarned().String())
		assert.Equal(t, courier.TransactionDeliveryFee, tx.Type())
		assert.Equal(t, "10.00", tx.BalanceBefore().String())
		assert.Equal(t, "19.50", tx.BalanceAfter().String())
		require.NotNil(t, tx.OrderID())
		assert.True(t, tx.OrderID().IsEqual(orderID))
		assert.True(t, w.HasCredited(orderID))
		assert.Len(t, w.PendingTransactions(), 1)

		w.MarkPersisted()
		assert.Empty(t, w.PendingTransactions())
	})

	t.Run("should credit an order only once", func(t *testing.T) {
		w, err := courier.NewWallet(kernel.NewUUID())
		require.NoError(t, err)
		orderID := kernel.NewUUID()

		_, err = w.CreditDelivery(orderID, kernel.MustMoney("5.00"), "", at)
		require.NoError(t, err)
		_, err = w.CreditDelivery(orderID, kernel.MustMoney("5.00"), "", at)

		require.ErrorIs(t, err, courier.ErrAlreadyCredited)
		assert.Equal(t, "5.00", w.Balance().String())
	})

	t.Run("should honour orders credited before restore", func(t *testing.T) {
		orderID := kernel.NewUUID()
		w, err := courier.RestoreWallet(kernel.NewUUID(), kernel.MustMoney("5.00"), kernel.MustMoney("5.00"),
			[]kernel.UUID{orderID})
		require.NoError(t, err)

		_, err = w.CreditDelivery(orderID, kernel.MustMoney("5.00"), "", at)

		require.ErrorIs(t, err, courier.ErrAlreadyCredited)
	})

	t.Run("should reject a zero fee", func(t *testing.T) {
		w, err := courier.NewWallet(kernel.NewUUID())
		require.NoError(t, err)

		_, err = w.CreditDelivery(kernel.NewUUID(), kernel.ZeroMoney(), "", at)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})
}

func TestRestoreWallet_BalanceAboveEarnings(t *testing.T) {
	_, err := courier.RestoreWallet(kernel.NewUUID(), kernel.MustMoney("30.00"), kernel.MustMoney("20.00"), nil)

	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestRestoreTransaction(t *testing.T) {
	orderID := kernel.NewUUID()

	t.Run("should restore a consistent line", func(t *testing.T) {
		tx, err := courier.RestoreTransaction(kernel.NewUUID(), kernel.NewUUID(), &orderID,
			courier.TransactionDeliveryFee, kernel.MustMoney("7.00"), kernel.MustMoney("3.00"), kernel.MustMoney("10.00"),
			"fee", time.Now())

		require.NoError(t, err)
		require.NoError(t, tx.Validate())
		assert.Equal(t, "7.00", tx.Amount().String())
	})

	t.Run("should reject a line whose balances do not add up", func(t *testing.T) {
		_, err := courier.RestoreTransaction(kernel.NewUUID(), kernel.NewUUID(), &orderID,
			courier.TransactionDeliveryFee, kernel.MustMoney("7.00"), kernel.MustMoney("3.00"), kernel.MustMoney("11.00"),
			"fee", time.Now())

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should reject an unknown type", func(t *testing.T) {
		_, err := courier.RestoreTransaction(kernel.NewUUID(), kernel.NewUUID(), nil,
			courier.TransactionType("FINE"), kernel.MustMoney("1.00"), kernel.MustMoney("0.00"), kernel.MustMoney("1.00"),
			"", time.Now())

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		require.ErrorIs(t, courier.Transaction{}.Validate(), courier.ErrTransactionIsNotConstructed)
	})
}

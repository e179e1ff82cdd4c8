// Package courier models what the lifecycle engine owes couriers. It implements the
// Wallet aggregate root and its Transaction entries.
//
// The package includes:
//   - Wallet: per-courier balance and lifetime earnings
//   - Transaction: an immutable ledger line explaining one balance change
//
// Key business rules:
//   - Amounts are kernel.Money, so a wallet never goes negative
//   - A delivered order credits its courier at most once; the wallet keeps the ids of
//     the orders it was credited for
//   - Every credit produces a Transaction carrying the balance before and after
package courier

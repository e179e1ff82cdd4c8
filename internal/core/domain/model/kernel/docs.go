// Package kernel provides the shared value objects of the order domain.
//
// The package includes:
//   - UUID: identifier for orders, restaurants, customers, couriers and events
//   - Money: non-negative two-decimal amount backed by shopspring/decimal
//
// Both are immutable, validated at construction and guarded against zero values.
package kernel

// Package order provides the Order aggregate of the restaurant lifecycle engine.
//
// The package includes:
//   - Order: aggregate root holding items, totals, payment status and status history
//   - Status: the unified lifecycle state machine with a declarative transition table
//   - ValidateTransition: pure state, channel and payment checks
//   - Actor, Role: who requested a transition
//   - InvalidTransitionError: a rejected request, naming the violated rule
//
// Key business rules:
//   - Online-paid delivery and pickup orders start in PENDING, all others in PLACED
//   - Courier states exist only for DELIVERY orders; READY -> COMPLETED only for PICKUP and DINE_IN
//   - A FAILED payment blocks every target except CANCELLED and REJECTED
//   - DELIVERED, COMPLETED, CANCELLED and REJECTED are terminal
//
// Actor capability (who may request what) lives in the domain services package.
package order

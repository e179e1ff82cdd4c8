// Package services holds domain logic that does not belong to a single value object.
//
// The package includes:
//   - TransitionPolicy: the order state rules plus the actor-capability layer
//   - DeliveryFeeCalculator: courier earnings for a delivered order
package services

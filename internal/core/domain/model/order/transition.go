package order

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
)

// ErrInvalidTransition is the sentinel every rejected transition unwraps to.
var ErrInvalidTransition = errors.New("invalid transition")

// Rule names the check that rejected a transition.
type Rule string

const (
	// RuleState means the adjacency table has no edge from the current status.
	RuleState Rule = "state"
	// RuleChannel means the target does not exist on the order's channel.
	RuleChannel Rule = "channel"
	// RulePayment means the payment precondition is not met.
	RulePayment Rule = "payment"
	// RuleCapability means the actor may not request this target.
	RuleCapability Rule = "capability"
	// RuleInput means the request lacks data the target needs, such as a courier id.
	RuleInput Rule = "input"
)

// InvalidTransitionError carries the violated rule and a reason suitable for the
// audit trail and client UI.
type InvalidTransitionError struct {
	Rule   Rule
	From   Status
	To     Status
	Reason string
}

// NewInvalidTransitionError builds a rule violation for from -> to.
func NewInvalidTransitionError(rule Rule, from, to Status, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{Rule: rule, From: from, To: to, Reason: reason}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s -> %s: %s rule: %s", ErrInvalidTransition, e.From, e.To, e.Rule, e.Reason)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// TransitionContext is everything the state machine needs to judge a request.
type TransitionContext struct {
	From    Status
	To      Status
	Channel Channel
	Payment PaymentStatus
}

// ValidateTransition applies the state, channel and payment rules, in that order.
// It is a pure function; actor capability is checked by the transition policy.
func ValidateTransition(tc TransitionContext) error {
	if tc.From.IsTerminal() {
		return NewInvalidTransitionError(RuleState, tc.From, tc.To,
			fmt.Sprintf("%s is terminal", tc.From))
	}
	if !tc.From.CanTransitionTo(tc.To) {
		return NewInvalidTransitionError(RuleState, tc.From, tc.To,
			fmt.Sprintf("%s cannot move to %s", tc.From, tc.To))
	}

	if tc.To.deliveryOnly() && tc.Channel != ChannelDelivery {
		return NewInvalidTransitionError(RuleChannel, tc.From, tc.To,
			fmt.Sprintf("%s is only reachable by %s orders, order channel is %s", tc.To, ChannelDelivery, tc.Channel))
	}
	if tc.From == Ready && tc.To == Completed && tc.Channel == ChannelDelivery {
		return NewInvalidTransitionError(RuleChannel, tc.From, tc.To,
			fmt.Sprintf("%s orders must be handed to a courier", ChannelDelivery))
	}

	if tc.To.requiresSettledPayment() && tc.Payment == PaymentFailed {
		return NewInvalidTransitionError(RulePayment, tc.From, tc.To,
			fmt.Sprintf("payment status is %s", tc.Payment))
	}
	return nil
}

// TransitionInput is a validated request to move an order to Target.
type TransitionInput struct {
	Target Status
	Actor  Actor
	Note   string
	// At is clamped to the last history timestamp so history stays ordered under clock skew.
	At time.Time
	// CourierID is required when Target is CourierAssigned.
	CourierID *kernel.UUID
}

// Transition describes an applied change.
type Transition struct {
	From  Status
	To    Status
	Entry HistoryEntry
}

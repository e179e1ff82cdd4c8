package order

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// Channel is how the order reaches the customer.
type Channel string

const (
	// ChannelDelivery orders travel through the courier states.
	ChannelDelivery Channel = "DELIVERY"
	// ChannelPickup orders are collected by the customer at the counter.
	ChannelPickup Channel = "PICKUP"
	// ChannelDineIn orders are served at a table and never see a courier.
	ChannelDineIn Channel = "DINE_IN"
)

// ChannelFromString parses a channel name.
func ChannelFromString(s string) (Channel, error) {
	c := Channel(s)
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate rejects unknown channels.
func (c Channel) Validate() error {
	switch c {
	case ChannelDelivery, ChannelPickup, ChannelDineIn:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("channel", fmt.Errorf("%q is not a valid channel", string(c)))
	}
}

// String returns the wire name.
func (c Channel) String() string {
	return string(c)
}

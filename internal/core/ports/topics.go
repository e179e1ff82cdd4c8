package ports

import (
	"fmt"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// TopicCouriers is the broadcast topic idle couriers listen on.
const TopicCouriers = "couriers"

const (
	restaurantPrefix = "restaurant:"
	customerPrefix   = "customer:"
	kitchenPrefix    = "kitchen:"
)

func RestaurantTopic(restaurantID string) string { return restaurantPrefix + restaurantID }

func CustomerTopic(customerID string) string { return customerPrefix + customerID }

func KitchenTopic(restaurantID string) string { return kitchenPrefix + restaurantID }

// ParseTopic accepts "couriers" or one of the "<kind>:<uuid>" topics and returns it in
// canonical form.
func ParseTopic(topic string) (string, error) {
	if topic == TopicCouriers {
		return topic, nil
	}
	for _, prefix := range []string{restaurantPrefix, customerPrefix, kitchenPrefix} {
		if rest, ok := strings.CutPrefix(topic, prefix); ok {
			id, err := kernel.UUIDFromString(rest)
			if err != nil {
				return "", errs.NewValueIsInvalidErrorWithCause("topic", err)
			}
			return prefix + id.String(), nil
		}
	}
	return "", errs.NewValueIsInvalidErrorWithCause("topic", fmt.Errorf("%q is not a known topic", topic))
}

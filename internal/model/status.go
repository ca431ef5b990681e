package model

import (
	"errors"
	"fmt"
)

var ErrUnknownOrderStatus = errors.New("unknown order status")

// OrderStatus is the closed set of statuses the broker reports for an order.
type OrderStatus uint8

const (
	StatusPending OrderStatus = iota
	StatusOpen
	StatusPartiallyFilled
	StatusFilled
	StatusExpired
	StatusCanceled
	StatusRejected
	StatusCalculated
	StatusAcceptedForBidding
	StatusError
	StatusHeld

	orderStatusCount
)

// Adding a status changes orderStatusCount and breaks this line on purpose:
// every switch over OrderStatus (filter, terminal set, names) must be revisited.
var _ = [1]struct{}{}[orderStatusCount-11]

var orderStatusNames = [orderStatusCount]string{
	StatusPending:            "pending",
	StatusOpen:               "open",
	StatusPartiallyFilled:    "partially_filled",
	StatusFilled:             "filled",
	StatusExpired:            "expired",
	StatusCanceled:           "canceled",
	StatusRejected:           "rejected",
	StatusCalculated:         "calculated",
	StatusAcceptedForBidding: "accepted_for_bidding",
	StatusError:              "error",
	StatusHeld:               "held",
}

// OrderStatuses returns every status in declaration order.
func OrderStatuses() []OrderStatus {
	statuses := make([]OrderStatus, 0, orderStatusCount)
	for s := OrderStatus(0); s < orderStatusCount; s++ {
		statuses = append(statuses, s)
	}
	return statuses
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	for i, name := range orderStatusNames {
		if name == s {
			return OrderStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOrderStatus, s)
}

func (s OrderStatus) String() string {
	if s >= orderStatusCount {
		return fmt.Sprintf("OrderStatus(%d)", uint8(s))
	}
	return orderStatusNames[s]
}

// IsTerminal reports whether the broker will not move the order any further.
// accepted_for_bidding and held are still live from the account's point of view.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusExpired, StatusRejected, StatusError, StatusCalculated:
		return true
	case StatusPending, StatusOpen, StatusPartiallyFilled, StatusAcceptedForBidding, StatusHeld:
		return false
	}
	panic(fmt.Sprintf("invalid order status %d", uint8(s)))
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if s >= orderStatusCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrderStatus, uint8(s))
	}
	return []byte(orderStatusNames[s]), nil
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	status, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Package filter decides which orders are shown. It never mutates orders.
package filter

import (
	"fmt"

	"github.com/STTM-NSU/tradier-dashboard/internal/model"
)

// Config holds one visibility toggle per order status.
type Config struct {
	Pending            bool `json:"pending"`
	Open               bool `json:"open"`
	PartiallyFilled    bool `json:"partially_filled"`
	Filled             bool `json:"filled"`
	Expired            bool `json:"expired"`
	Canceled           bool `json:"canceled"`
	Rejected           bool `json:"rejected"`
	Calculated         bool `json:"calculated"`
	AcceptedForBidding bool `json:"accepted_for_bidding"`
	Error              bool `json:"error"`
	Held               bool `json:"held"`
}

// DefaultConfig shows only orders that still need attention.
func DefaultConfig() Config {
	return Config{
		Pending:         true,
		Open:            true,
		PartiallyFilled: true,
	}
}

// IsVisible has no default arm: a new model.OrderStatus must be added here.
func IsVisible(status model.OrderStatus, cfg Config) bool {
	switch status {
	case model.StatusPending:
		return cfg.Pending
	case model.StatusOpen:
		return cfg.Open
	case model.StatusPartiallyFilled:
		return cfg.PartiallyFilled
	case model.StatusFilled:
		return cfg.Filled
	case model.StatusExpired:
		return cfg.Expired
	case model.StatusCanceled:
		return cfg.Canceled
	case model.StatusRejected:
		return cfg.Rejected
	case model.StatusCalculated:
		return cfg.Calculated
	case model.StatusAcceptedForBidding:
		return cfg.AcceptedForBidding
	case model.StatusError:
		return cfg.Error
	case model.StatusHeld:
		return cfg.Held
	}
	panic(fmt.Sprintf("filter: unhandled order status %d", uint8(status)))
}

// Set returns a copy of cfg with the toggle for status changed.
func (cfg Config) Set(status model.OrderStatus, visible bool) Config {
	switch status {
	case model.StatusPending:
		cfg.Pending = visible
		return cfg
	case model.StatusOpen:
		cfg.Open = visible
		return cfg
	case model.StatusPartiallyFilled:
		cfg.PartiallyFilled = visible
		return cfg
	case model.StatusFilled:
		cfg.Filled = visible
		return cfg
	case model.StatusExpired:
		cfg.Expired = visible
		return cfg
	case model.StatusCanceled:
		cfg.Canceled = visible
		return cfg
	case model.StatusRejected:
		cfg.Rejected = visible
		return cfg
	case model.StatusCalculated:
		cfg.Calculated = visible
		return cfg
	case model.StatusAcceptedForBidding:
		cfg.AcceptedForBidding = visible
		return cfg
	case model.StatusError:
		cfg.Error = visible
		return cfg
	case model.StatusHeld:
		cfg.Held = visible
		return cfg
	}
	panic(fmt.Sprintf("filter: unhandled order status %d", uint8(status)))
}

// Filter keeps the visible orders in their original order. The result never
// aliases the input slice.
func Filter(orders []model.Order, cfg Config) []model.Order {
	visible := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if IsVisible(o.Status, cfg) {
			visible = append(visible, o)
		}
	}
	return visible
}

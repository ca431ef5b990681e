// Package broker defines the contract with the remote brokerage and the
// account resolution policy shared by refreshes and order mutations.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/STTM-NSU/tradier-dashboard/internal/model"
)

// Gateway is a blocking round-trip to the brokerage. Implementations must be
// safe for concurrent use.
type Gateway interface {
	GetProfile(ctx context.Context) (model.Profile, error)
	GetBalances(ctx context.Context, account string) (model.Balances, error)
	GetPositions(ctx context.Context, account string) ([]model.Position, error)
	GetOrders(ctx context.Context, account string, includeAll bool) ([]model.Order, error)
	CancelOrder(ctx context.Context, account string, orderID int64) (OrderAck, error)
	PlaceOrder(ctx context.Context, account string, req OrderRequest) (OrderAck, error)
}

type OrderRequest struct {
	Class        model.Class
	Symbol       string
	Side         model.Side
	Quantity     int64
	Type         model.OrderType
	Duration     model.Duration
	Price        *float64
	StopPrice    *float64
	OptionSymbol string
	Tag          string
}

type OrderAck struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	PartnerID string `json:"partner_id,omitempty"`
}

var ErrProfileUnavailable = errors.New("profile unavailable")

// GatewayError is any transport, HTTP or decoding failure reported by a Gateway.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := "gateway " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ResolveAccount fetches the profile and picks the first account. Only one
// account per session is supported.
func ResolveAccount(ctx context.Context, gw Gateway) (string, error) {
	profile, err := gw.GetProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	if len(profile.Accounts) == 0 {
		return "", fmt.Errorf("%w: profile %q has no accounts", ErrProfileUnavailable, profile.ID)
	}
	return profile.Accounts[0].Number, nil
}

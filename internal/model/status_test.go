package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_ParseAndString(t *testing.T) {
	names := map[string]OrderStatus{
		"pending":              StatusPending,
		"open":                 StatusOpen,
		"partially_filled":     StatusPartiallyFilled,
		"filled":               StatusFilled,
		"expired":              StatusExpired,
		"canceled":             StatusCanceled,
		"rejected":             StatusRejected,
		"calculated":           StatusCalculated,
		"accepted_for_bidding": StatusAcceptedForBidding,
		"error":                StatusError,
		"held":                 StatusHeld,
	}
	require.Len(t, OrderStatuses(), len(names))

	for name, status := range names {
		parsed, err := ParseOrderStatus(name)
		require.NoError(t, err, name)
		assert.Equal(t, status, parsed, name)
		assert.Equal(t, name, status.String())
	}
}

func TestOrderStatus_ParseUnknown(t *testing.T) {
	_, err := ParseOrderStatus("new")
	assert.ErrorIs(t, err, ErrUnknownOrderStatus)

	_, err = ParseOrderStatus("")
	assert.ErrorIs(t, err, ErrUnknownOrderStatus)
}

func TestOrderStatus_Text(t *testing.T) {
	var s OrderStatus
	require.NoError(t, s.UnmarshalText([]byte("partially_filled")))
	assert.Equal(t, StatusPartiallyFilled, s)

	text, err := StatusHeld.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "held", string(text))

	_, err = OrderStatus(200).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownOrderStatus)
	assert.Error(t, s.UnmarshalText([]byte("unknown")))
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		StatusFilled:     true,
		StatusCanceled:   true,
		StatusExpired:    true,
		StatusRejected:   true,
		StatusError:      true,
		StatusCalculated: true,
	}
	for _, s := range OrderStatuses() {
		assert.Equal(t, terminal[s], s.IsTerminal(), s.String())
	}

	assert.Panics(t, func() { _ = OrderStatus(99).IsTerminal() })
}

func TestOrder_FilledAndCancelable(t *testing.T) {
	o := Order{Quantity: 10, RemainingQuantity: 4, Status: StatusPartiallyFilled}
	assert.Equal(t, 6.0, o.Filled())
	assert.True(t, o.Cancelable())

	o.Status = StatusFilled
	o.RemainingQuantity = 0
	assert.Equal(t, 10.0, o.Filled())
	assert.False(t, o.Cancelable())
}

func TestBalances_RequireMargin(t *testing.T) {
	cash := Balances{AccountNumber: "VA000001", AccountType: "cash"}
	assert.False(t, cash.HasMargin())
	_, err := cash.RequireMargin()
	assert.ErrorIs(t, err, ErrMissingMargin)

	margin := Balances{Margin: &Margin{StockBuyingPower: 2000}}
	m, err := margin.RequireMargin()
	require.NoError(t, err)
	assert.Equal(t, 2000.0, m.StockBuyingPower)
}

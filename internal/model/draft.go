package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDraft = errors.New("invalid order draft")

// PlaceOrderDraft is the order the user is composing. Zero Side, Quantity and
// Duration mean "use the configured default".
type PlaceOrderDraft struct {
	Class        Class     `json:"class"`
	Type         OrderType `json:"type"`
	Symbol       string    `json:"symbol"`
	OptionSymbol string    `json:"option_symbol,omitempty"`
	Side         Side      `json:"side,omitempty"`
	Quantity     int64     `json:"quantity,omitempty"`
	Duration     Duration  `json:"duration,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	StopPrice    *float64  `json:"stop_price,omitempty"`
}

type OrderDefaults struct {
	Side     Side
	Quantity int64
	Duration Duration
}

func NewPlaceOrderDraft() PlaceOrderDraft {
	return PlaceOrderDraft{
		Class: Equity,
		Type:  Market,
	}
}

func (d PlaceOrderDraft) Normalize(def OrderDefaults) PlaceOrderDraft {
	d.Symbol = strings.ToUpper(strings.TrimSpace(d.Symbol))
	d.OptionSymbol = strings.ToUpper(strings.TrimSpace(d.OptionSymbol))
	if d.Class == "" {
		d.Class = Equity
	}
	if d.Type == "" {
		d.Type = Market
	}
	if d.Side == "" {
		d.Side = def.Side
		if d.Class == Option {
			d.Side = BuyToOpen
		}
	}
	if d.Quantity == 0 {
		d.Quantity = def.Quantity
	}
	if d.Duration == "" {
		d.Duration = def.Duration
	}
	return d
}

func (d PlaceOrderDraft) Validate() error {
	if err := d.Class.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	if err := d.Type.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	if err := d.Side.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	if err := d.Duration.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	if d.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidDraft)
	}
	if d.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidDraft, d.Quantity)
	}

	switch d.Class {
	case Option:
		if d.OptionSymbol == "" {
			return fmt.Errorf("%w: option order without option symbol", ErrInvalidDraft)
		}
		if !d.Side.IsOptionSide() {
			return fmt.Errorf("%w: side %s is not valid for options", ErrInvalidDraft, d.Side)
		}
	case Equity:
		if d.Side.IsOptionSide() {
			return fmt.Errorf("%w: side %s is only valid for options", ErrInvalidDraft, d.Side)
		}
	}

	if d.Type.NeedsPrice() && (d.Price == nil || *d.Price <= 0) {
		return fmt.Errorf("%w: %s order needs a positive price", ErrInvalidDraft, d.Type)
	}
	if d.Type.NeedsStopPrice() && (d.StopPrice == nil || *d.StopPrice <= 0) {
		return fmt.Errorf("%w: %s order needs a positive stop price", ErrInvalidDraft, d.Type)
	}

	return nil
}

package model

import (
	"fmt"
	"time"
)

type Side string

const (
	Buy         Side = "buy"
	BuyToCover  Side = "buy_to_cover"
	Sell        Side = "sell"
	SellShort   Side = "sell_short"
	BuyToOpen   Side = "buy_to_open"
	BuyToClose  Side = "buy_to_close"
	SellToOpen  Side = "sell_to_open"
	SellToClose Side = "sell_to_close"
)

func (s Side) Validate() error {
	switch s {
	case Buy, BuyToCover, Sell, SellShort, BuyToOpen, BuyToClose, SellToOpen, SellToClose:
		return nil
	}
	return fmt.Errorf("unsupported order side %q", string(s))
}

// IsOptionSide reports whether the side is only valid for option orders.
func (s Side) IsOptionSide() bool {
	switch s {
	case BuyToOpen, BuyToClose, SellToOpen, SellToClose:
		return true
	}
	return false
}

type OrderType string

const (
	Market    OrderType = "market"
	Limit     OrderType = "limit"
	Stop      OrderType = "stop"
	StopLimit OrderType = "stop_limit"
)

func (t OrderType) Validate() error {
	switch t {
	case Market, Limit, Stop, StopLimit:
		return nil
	}
	return fmt.Errorf("unsupported order type %q", string(t))
}

func (t OrderType) NeedsPrice() bool {
	return t == Limit || t == StopLimit
}

func (t OrderType) NeedsStopPrice() bool {
	return t == Stop || t == StopLimit
}

type Duration string

const (
	Day  Duration = "day"
	GTC  Duration = "gtc"
	Pre  Duration = "pre"
	Post Duration = "post"
)

func (d Duration) Validate() error {
	switch d {
	case Day, GTC, Pre, Post:
		return nil
	}
	return fmt.Errorf("unsupported order duration %q", string(d))
}

type Class string

const (
	Equity Class = "equity"
	Option Class = "option"
)

func (c Class) Validate() error {
	switch c {
	case Equity, Option:
		return nil
	}
	return fmt.Errorf("unsupported security class %q", string(c))
}

type Order struct {
	ID                int64       `json:"id"`
	Symbol            string      `json:"symbol"`
	OptionSymbol      string      `json:"option_symbol,omitempty"`
	Class             Class       `json:"class"`
	Side              Side        `json:"side"`
	Quantity          float64     `json:"quantity"`
	RemainingQuantity float64     `json:"remaining_quantity"`
	Type              OrderType   `json:"type"`
	Duration          Duration    `json:"duration"`
	Status            OrderStatus `json:"status"`
	Price             float64     `json:"price,omitempty"`
	StopPrice         float64     `json:"stop_price,omitempty"`
	AvgFillPrice      float64     `json:"avg_fill_price,omitempty"`
	Tag               string      `json:"tag,omitempty"`
	CreatedAt         time.Time   `json:"create_date"`
	UpdatedAt         time.Time   `json:"transaction_date"`
}

func (o Order) Filled() float64 {
	return o.Quantity - o.RemainingQuantity
}

func (o Order) Cancelable() bool {
	return !o.Status.IsTerminal()
}

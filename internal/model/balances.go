package model

import "errors"

var ErrMissingMargin = errors.New("balances have no margin figures")

// Balances is one account-level snapshot. Margin is nil for cash accounts.
type Balances struct {
	AccountNumber      string  `json:"account_number"`
	AccountType        string  `json:"account_type"`
	TotalCash          float64 `json:"total_cash"`
	TotalEquity        float64 `json:"total_equity"`
	MarketValue        float64 `json:"market_value"`
	LongMarketValue    float64 `json:"long_market_value"`
	ShortMarketValue   float64 `json:"short_market_value"`
	OpenPL             float64 `json:"open_pl"`
	ClosePL            float64 `json:"close_pl"`
	PendingOrdersCount int     `json:"pending_orders_count"`
	UnclearedFunds     float64 `json:"uncleared_funds"`

	Cash   *Cash   `json:"cash,omitempty"`
	Margin *Margin `json:"margin,omitempty"`
}

type Margin struct {
	FedCall             float64 `json:"fed_call"`
	MaintenanceCall     float64 `json:"maintenance_call"`
	OptionBuyingPower   float64 `json:"option_buying_power"`
	StockBuyingPower    float64 `json:"stock_buying_power"`
	DayTradeBuyingPower float64 `json:"day_trade_buying_power,omitempty"`
	StockShortValue     float64 `json:"stock_short_value"`
	Sweep               float64 `json:"sweep"`
}

type Cash struct {
	CashAvailable  float64 `json:"cash_available"`
	Sweep          float64 `json:"sweep"`
	UnsettledFunds float64 `json:"unsettled_funds"`
}

func (b Balances) HasMargin() bool {
	return b.Margin != nil
}

// RequireMargin is for callers that cannot work without buying power figures.
func (b Balances) RequireMargin() (Margin, error) {
	if b.Margin == nil {
		return Margin{}, ErrMissingMargin
	}
	return *b.Margin, nil
}

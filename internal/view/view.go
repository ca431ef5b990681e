// Package view turns snapshots into display-ready rows. Nothing here mutates
// its input.
package view

import (
	"fmt"
	"time"

	"github.com/STTM-NSU/tradier-dashboard/internal/model"
	"github.com/STTM-NSU/tradier-dashboard/internal/tools"
)

const _dateLayout = "2006-01-02"

// BalancesView leaves buying power fields nil for cash accounts.
type BalancesView struct {
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`
	TotalCash     string `json:"total_cash"`
	TotalEquity   string `json:"total_equity"`
	MarketValue   string `json:"market_value"`
	OpenPL        string `json:"open_pl"`
	ClosePL       string `json:"close_pl"`
	PendingOrders int    `json:"pending_orders"`

	StockBuyingPower    *string `json:"stock_buying_power,omitempty"`
	OptionBuyingPower   *string `json:"option_buying_power,omitempty"`
	DayTradeBuyingPower *string `json:"day_trade_buying_power,omitempty"`

	CashAvailable  *string `json:"cash_available,omitempty"`
	UnsettledFunds *string `json:"unsettled_funds,omitempty"`
}

func Balances(b model.Balances) BalancesView {
	v := BalancesView{
		AccountNumber: b.AccountNumber,
		AccountType:   b.AccountType,
		TotalCash:     tools.Money(b.TotalCash),
		TotalEquity:   tools.Money(b.TotalEquity),
		MarketValue:   tools.Money(b.MarketValue),
		OpenPL:        tools.Money(b.OpenPL),
		ClosePL:       tools.Money(b.ClosePL),
		PendingOrders: b.PendingOrdersCount,
	}
	if m := b.Margin; m != nil {
		v.StockBuyingPower = money(m.StockBuyingPower)
		v.OptionBuyingPower = money(m.OptionBuyingPower)
		if m.DayTradeBuyingPower != 0 {
			v.DayTradeBuyingPower = money(m.DayTradeBuyingPower)
		}
	}
	if c := b.Cash; c != nil {
		v.CashAvailable = money(c.CashAvailable)
		v.UnsettledFunds = money(c.UnsettledFunds)
	}
	return v
}

type MarginView struct {
	StockBuyingPower  string `json:"stock_buying_power"`
	OptionBuyingPower string `json:"option_buying_power"`
	FedCall           string `json:"fed_call"`
	MaintenanceCall   string `json:"maintenance_call"`
	StockShortValue   string `json:"stock_short_value"`
}

// Margin fails with model.ErrMissingMargin for accounts without a margin
// record.
func Margin(b model.Balances) (MarginView, error) {
	m, err := b.RequireMargin()
	if err != nil {
		return MarginView{}, err
	}
	return MarginView{
		StockBuyingPower:  tools.Money(m.StockBuyingPower),
		OptionBuyingPower: tools.Money(m.OptionBuyingPower),
		FedCall:           tools.Money(m.FedCall),
		MaintenanceCall:   tools.Money(m.MaintenanceCall),
		StockShortValue:   tools.Money(m.StockShortValue),
	}, nil
}

type PositionRow struct {
	Symbol       string `json:"symbol"`
	Quantity     string `json:"quantity"`
	CostBasis    string `json:"cost_basis"`
	CostPerShare string `json:"cost_per_share"`
	Acquired     string `json:"acquired"`
}

// Positions keeps fetch order.
func Positions(ps []model.Position) []PositionRow {
	rows := make([]PositionRow, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, PositionRow{
			Symbol:       p.Symbol,
			Quantity:     tools.Quantity(p.Quantity),
			CostBasis:    tools.Money(p.CostBasis),
			CostPerShare: tools.Money(tools.PerShare(p.CostBasis, p.Quantity)),
			Acquired:     date(p.DateAcquired),
		})
	}
	return rows
}

type OrderRow struct {
	ID         int64  `json:"id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Duration   string `json:"duration"`
	Status     string `json:"status"`
	Filled     string `json:"filled"`
	Price      string `json:"price"`
	Cancelable bool   `json:"cancelable"`
	Created    string `json:"created"`
}

func Orders(os []model.Order) []OrderRow {
	rows := make([]OrderRow, 0, len(os))
	for _, o := range os {
		symbol := o.Symbol
		if o.Class == model.Option && o.OptionSymbol != "" {
			symbol = o.OptionSymbol
		}
		rows = append(rows, OrderRow{
			ID:         o.ID,
			Symbol:     symbol,
			Side:       string(o.Side),
			Type:       string(o.Type),
			Duration:   string(o.Duration),
			Status:     o.Status.String(),
			Filled:     fmt.Sprintf("%s/%s", tools.Quantity(o.Filled()), tools.Quantity(o.Quantity)),
			Price:      orderPrice(o),
			Cancelable: o.Cancelable(),
			Created:    date(o.CreatedAt),
		})
	}
	return rows
}

func orderPrice(o model.Order) string {
	switch o.Type {
	case model.Limit:
		return tools.Money(o.Price)
	case model.Stop:
		return tools.Money(o.StopPrice)
	case model.StopLimit:
		return tools.Money(o.StopPrice) + " / " + tools.Money(o.Price)
	}
	return ""
}

func money(v float64) *string {
	s := tools.Money(v)
	return &s
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(_dateLayout)
}

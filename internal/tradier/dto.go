package tradier

import (
	"fmt"
	"strings"
	"time"

	"github.com/STTM-NSU/tradier-dashboard/internal/broker"
	"github.com/STTM-NSU/tradier-dashboard/internal/model"
)

type profileResponse struct {
	Profile struct {
		ID      string                `json:"id"`
		Name    string                `json:"name"`
		Account oneOrMany[accountDTO] `json:"account"`
	} `json:"profile"`
}

type accountDTO struct {
	AccountNumber  string `json:"account_number"`
	Classification string `json:"classification"`
	DayTrader      bool   `json:"day_trader"`
	OptionLevel    int    `json:"option_level"`
	Status         string `json:"status"`
	Type           string `json:"type"`
}

func (r profileResponse) toModel() model.Profile {
	p := model.Profile{
		ID:       r.Profile.ID,
		Name:     r.Profile.Name,
		Accounts: make([]model.Account, 0, len(r.Profile.Account)),
	}
	for _, a := range r.Profile.Account {
		p.Accounts = append(p.Accounts, model.Account{
			Number:         a.AccountNumber,
			Type:           a.Type,
			Classification: a.Classification,
			Status:         a.Status,
			OptionLevel:    a.OptionLevel,
			DayTrader:      a.DayTrader,
		})
	}
	return p
}

type balancesResponse struct {
	Balances struct {
		AccountNumber      string           `json:"account_number"`
		AccountType        string           `json:"account_type"`
		ClosePL            float64          `json:"close_pl"`
		LongMarketValue    float64          `json:"long_market_value"`
		MarketValue        float64          `json:"market_value"`
		OpenPL             float64          `json:"open_pl"`
		PendingOrdersCount int              `json:"pending_orders_count"`
		ShortMarketValue   float64          `json:"short_market_value"`
		TotalCash          float64          `json:"total_cash"`
		TotalEquity        float64          `json:"total_equity"`
		UnclearedFunds     float64          `json:"uncleared_funds"`
		Margin             maybe[marginDTO] `json:"margin"`
		PDT                maybe[marginDTO] `json:"pdt"`
		Cash               maybe[cashDTO]   `json:"cash"`
	} `json:"balances"`
}

type marginDTO struct {
	FedCall             float64 `json:"fed_call"`
	MaintenanceCall     float64 `json:"maintenance_call"`
	OptionBuyingPower   float64 `json:"option_buying_power"`
	StockBuyingPower    float64 `json:"stock_buying_power"`
	DayTradeBuyingPower float64 `json:"day_trade_buying_power"`
	StockShortValue     float64 `json:"stock_short_value"`
	Sweep               float64 `json:"sweep"`
}

func (m marginDTO) toModel() *model.Margin {
	return &model.Margin{
		FedCall:             m.FedCall,
		MaintenanceCall:     m.MaintenanceCall,
		OptionBuyingPower:   m.OptionBuyingPower,
		StockBuyingPower:    m.StockBuyingPower,
		DayTradeBuyingPower: m.DayTradeBuyingPower,
		StockShortValue:     m.StockShortValue,
		Sweep:               m.Sweep,
	}
}

type cashDTO struct {
	CashAvailable  float64 `json:"cash_available"`
	Sweep          float64 `json:"sweep"`
	UnsettledFunds float64 `json:"unsettled_funds"`
}

func (r balancesResponse) toModel() model.Balances {
	b := r.Balances
	res := model.Balances{
		AccountNumber:      b.AccountNumber,
		AccountType:        b.AccountType,
		TotalCash:          b.TotalCash,
		TotalEquity:        b.TotalEquity,
		MarketValue:        b.MarketValue,
		LongMarketValue:    b.LongMarketValue,
		ShortMarketValue:   b.ShortMarketValue,
		OpenPL:             b.OpenPL,
		ClosePL:            b.ClosePL,
		PendingOrdersCount: b.PendingOrdersCount,
		UnclearedFunds:     b.UnclearedFunds,
	}
	// pattern day trader accounts report buying power under "pdt"
	switch {
	case b.Margin.Valid:
		res.Margin = b.Margin.Value.toModel()
	case b.PDT.Valid:
		res.Margin = b.PDT.Value.toModel()
	}
	if b.Cash.Valid {
		res.Cash = &model.Cash{
			CashAvailable:  b.Cash.Value.CashAvailable,
			Sweep:          b.Cash.Value.Sweep,
			UnsettledFunds: b.Cash.Value.UnsettledFunds,
		}
	}
	return res
}

type positionsResponse struct {
	Positions maybe[struct {
		Position oneOrMany[positionDTO] `json:"position"`
	}] `json:"positions"`
}

type positionDTO struct {
	ID           int64     `json:"id"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	CostBasis    float64   `json:"cost_basis"`
	DateAcquired time.Time `json:"date_acquired"`
}

func (r positionsResponse) toModel() []model.Position {
	if !r.Positions.Valid {
		return []model.Position{}
	}
	positions := make([]model.Position, 0, len(r.Positions.Value.Position))
	for _, p := range r.Positions.Value.Position {
		positions = append(positions, model.Position{
			ID:           p.ID,
			Symbol:       p.Symbol,
			Quantity:     p.Quantity,
			CostBasis:    p.CostBasis,
			DateAcquired: p.DateAcquired,
		})
	}
	return positions
}

type ordersResponse struct {
	Orders maybe[struct {
		Order oneOrMany[orderDTO] `json:"order"`
	}] `json:"orders"`
}

type orderDTO struct {
	ID                int64     `json:"id"`
	Type              string    `json:"type"`
	Symbol            string    `json:"symbol"`
	OptionSymbol      string    `json:"option_symbol"`
	Side              string    `json:"side"`
	Quantity          float64   `json:"quantity"`
	Status            string    `json:"status"`
	Duration          string    `json:"duration"`
	Price             float64   `json:"price"`
	StopPrice         float64   `json:"stop_price"`
	AvgFillPrice      float64   `json:"avg_fill_price"`
	RemainingQuantity float64   `json:"remaining_quantity"`
	CreateDate        time.Time `json:"create_date"`
	TransactionDate   time.Time `json:"transaction_date"`
	Class             string    `json:"class"`
	Tag               string    `json:"tag"`
}

func (r ordersResponse) toModel() ([]model.Order, error) {
	if !r.Orders.Valid {
		return []model.Order{}, nil
	}
	orders := make([]model.Order, 0, len(r.Orders.Value.Order))
	for _, o := range r.Orders.Value.Order {
		status, err := model.ParseOrderStatus(o.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: order %d", err, o.ID)
		}
		orders = append(orders, model.Order{
			ID:                o.ID,
			Symbol:            o.Symbol,
			OptionSymbol:      o.OptionSymbol,
			Class:             model.Class(o.Class),
			Side:              model.Side(o.Side),
			Quantity:          o.Quantity,
			RemainingQuantity: o.RemainingQuantity,
			Type:              model.OrderType(o.Type),
			Duration:          model.Duration(o.Duration),
			Status:            status,
			Price:             o.Price,
			StopPrice:         o.StopPrice,
			AvgFillPrice:      o.AvgFillPrice,
			Tag:               o.Tag,
			CreatedAt:         o.CreateDate,
			UpdatedAt:         o.TransactionDate,
		})
	}
	return orders, nil
}

type orderAckResponse struct {
	Order struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		PartnerID string `json:"partner_id"`
	} `json:"order"`
}

func (r orderAckResponse) toModel() broker.OrderAck {
	return broker.OrderAck{
		ID:        r.Order.ID,
		Status:    r.Order.Status,
		PartnerID: r.Order.PartnerID,
	}
}

type errorResponse struct {
	Fault struct {
		FaultString string `json:"faultstring"`
	} `json:"fault"`
	Errors struct {
		Error oneOrMany[string] `json:"error"`
	} `json:"errors"`
}

func (e *errorResponse) message() string {
	if e == nil {
		return ""
	}
	if e.Fault.FaultString != "" {
		return e.Fault.FaultString
	}
	return strings.Join(e.Errors.Error, "; ")
}

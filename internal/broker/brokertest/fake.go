// Package brokertest provides an in-memory broker.Gateway for tests.
package brokertest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/STTM-NSU/tradier-dashboard/internal/broker"
	"github.com/STTM-NSU/tradier-dashboard/internal/model"
)

type Op string

const (
	OpProfile   Op = "profile"
	OpBalances  Op = "balances"
	OpPositions Op = "positions"
	OpOrders    Op = "orders"
	OpCancel    Op = "cancel"
	OpPlace     Op = "place"
)

var _ broker.Gateway = (*Fake)(nil)

// Fake keeps one account worth of broker state. Cancel and place mutate the
// order book the way the real broker would report it on the next fetch.
type Fake struct {
	mu sync.Mutex

	profile   model.Profile
	balances  model.Balances
	positions []model.Position
	orders    []model.Order
	nextID    int64

	failures map[Op][]error
	hooks    map[Op]func(ctx context.Context)
	calls    map[Op]int
	accounts map[Op][]string
	placed   []broker.OrderRequest
}

func New() *Fake {
	return &Fake{
		profile: model.Profile{
			ID:       "id-test",
			Name:     "Test User",
			Accounts: []model.Account{{Number: "VA000001", Type: "margin"}},
		},
		nextID:   1000,
		failures: make(map[Op][]error),
		hooks:    make(map[Op]func(ctx context.Context)),
		calls:    make(map[Op]int),
		accounts: make(map[Op][]string),
	}
}

func (f *Fake) SetProfile(p model.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
}

func (f *Fake) SetBalances(b model.Balances) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances = b
}

func (f *Fake) SetPositions(p []model.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = slices.Clone(p)
}

func (f *Fake) SetOrders(o []model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = slices.Clone(o)
}

// FailNext makes the next call of op return err. Calls queue up.
func (f *Fake) FailNext(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// SetHook runs fn at the start of every op call, outside the fake's lock.
func (f *Fake) SetHook(op Op, fn func(ctx context.Context)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

func (f *Fake) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Accounts returns the account numbers op was called with, in order.
func (f *Fake) Accounts(op Op) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.accounts[op])
}

func (f *Fake) Placed() []broker.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.placed)
}

func (f *Fake) enter(ctx context.Context, op Op, account string) error {
	f.mu.Lock()
	hook := f.hooks[op]
	f.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if account != "" {
		f.accounts[op] = append(f.accounts[op], account)
	}
	if err := ctx.Err(); err != nil {
		return &broker.GatewayError{Op: string(op), Err: err}
	}
	if queued := f.failures[op]; len(queued) > 0 {
		f.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *Fake) GetProfile(ctx context.Context) (model.Profile, error) {
	if err := f.enter(ctx, OpProfile, ""); err != nil {
		return model.Profile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profile
	p.Accounts = slices.Clone(p.Accounts)
	return p, nil
}

func (f *Fake) GetBalances(ctx context.Context, account string) (model.Balances, error) {
	if err := f.enter(ctx, OpBalances, account); err != nil {
		return model.Balances{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances, nil
}

func (f *Fake) GetPositions(ctx context.Context, account string) ([]model.Position, error) {
	if err := f.enter(ctx, OpPositions, account); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.positions), nil
}

func (f *Fake) GetOrders(ctx context.Context, account string, _ bool) ([]model.Order, error) {
	if err := f.enter(ctx, OpOrders, account); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.orders), nil
}

func (f *Fake) CancelOrder(ctx context.Context, account string, orderID int64) (broker.OrderAck, error) {
	if err := f.enter(ctx, OpCancel, account); err != nil {
		return broker.OrderAck{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID != orderID {
			continue
		}
		if f.orders[i].Status.IsTerminal() {
			return broker.OrderAck{}, &broker.GatewayError{
				Op: "cancel order", StatusCode: 400,
				Message: fmt.Sprintf("order %d is %s", orderID, f.orders[i].Status),
			}
		}
		f.orders[i].Status = model.StatusCanceled
		f.orders[i].UpdatedAt = time.Now()
		return broker.OrderAck{ID: orderID, Status: "ok"}, nil
	}
	return broker.OrderAck{}, &broker.GatewayError{
		Op: "cancel order", StatusCode: 400, Message: fmt.Sprintf("order %d not found", orderID),
	}
}

func (f *Fake) PlaceOrder(ctx context.Context, account string, req broker.OrderRequest) (broker.OrderAck, error) {
	if err := f.enter(ctx, OpPlace, account); err != nil {
		return broker.OrderAck{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, req)
	f.nextID++
	o := model.Order{
		ID:                f.nextID,
		Symbol:            req.Symbol,
		OptionSymbol:      req.OptionSymbol,
		Class:             req.Class,
		Side:              req.Side,
		Quantity:          float64(req.Quantity),
		RemainingQuantity: float64(req.Quantity),
		Type:              req.Type,
		Duration:          req.Duration,
		Status:            model.StatusPending,
		Tag:               req.Tag,
		CreatedAt:         time.Now(),
	}
	if req.Price != nil {
		o.Price = *req.Price
	}
	if req.StopPrice != nil {
		o.StopPrice = *req.StopPrice
	}
	f.orders = append(f.orders, o)
	return broker.OrderAck{ID: o.ID, Status: "ok"}, nil
}

// Package session holds the state shared by the UI, background refreshes and
// order actions. Every access goes through one mutex. Nothing in here does
// I/O, so the lock is only ever held for short copies.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/STTM-NSU/tradier-dashboard/internal/filter"
	"github.com/STTM-NSU/tradier-dashboard/internal/model"
)

// Resource names one of the independently refreshed snapshots.
type Resource int

const (
	Balances Resource = iota
	Positions
	Orders

	resourceCount
)

func (r Resource) String() string {
	switch r {
	case Balances:
		return "balances"
	case Positions:
		return "positions"
	case Orders:
		return "orders"
	}
	return fmt.Sprintf("Resource(%d)", int(r))
}

// ParseResource accepts the names produced by Resource.String.
func ParseResource(s string) (Resource, error) {
	for r := Resource(0); r < resourceCount; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", s)
}

// Resources lists every resource in refresh order.
func Resources() []Resource {
	return []Resource{Balances, Positions, Orders}
}

// Page is the view the UI currently shows.
type Page string

const (
	BalancePage    Page = "balance"
	PortfolioPage  Page = "portfolio"
	OrdersPage     Page = "orders"
	PlaceOrderPage Page = "place_order"
)

// ParsePage rejects anything but the four known pages.
func ParsePage(s string) (Page, error) {
	switch p := Page(s); p {
	case BalancePage, PortfolioPage, OrdersPage, PlaceOrderPage:
		return p, nil
	}
	return "", fmt.Errorf("unknown page %q", s)
}

// Snapshot is one complete fetch result. Value is never modified after commit.
type Snapshot[T any] struct {
	Value     T         `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// State is a copy of the session. Snapshot pointers are nil until the first
// successful fetch.
type State struct {
	Balances  *Snapshot[model.Balances]   `json:"balances"`
	Positions *Snapshot[[]model.Position] `json:"positions"`
	Orders    *Snapshot[[]model.Order]    `json:"orders"`

	Filter  filter.Config         `json:"filter"`
	Draft   model.PlaceOrderDraft `json:"draft"`
	Page    Page                  `json:"page"`
	Message string                `json:"message"`
}

// Ticket orders refreshes of one resource by start time.
type Ticket struct {
	resource Resource
	seq      uint64
}

func (t Ticket) Resource() Resource { return t.resource }

// Store is the single owner of session state. All methods are safe for
// concurrent use and none of them blocks on I/O.
type Store struct {
	mu    sync.Mutex
	state State

	issued    [resourceCount]uint64
	committed [resourceCount]uint64
}

// NewStore starts on the balance page with the default filter, an empty
// draft and no snapshots.
func NewStore() *Store {
	return &Store{
		state: State{
			Filter: filter.DefaultConfig(),
			Draft:  model.NewPlaceOrderDraft(),
			Page:   BalancePage,
		},
	}
}

// State returns a copy. Snapshot values are shared, not cloned, since they
// are replaced wholesale and never mutated.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginRefresh must be called before the fetch starts.
func (s *Store) BeginRefresh(r Resource) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[r]++
	return Ticket{resource: r, seq: s.issued[r]}
}

// commit reports false when a refresh started later has already landed, in
// which case the older result is dropped.
func (s *Store) commit(t Ticket, r Resource, apply func()) bool {
	if t.resource != r {
		panic(fmt.Sprintf("session: %s ticket used to commit %s", t.resource, r))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.seq <= s.committed[r] {
		return false
	}
	s.committed[r] = t.seq
	apply()
	return true
}

func (s *Store) CommitBalances(t Ticket, b model.Balances, at time.Time) bool {
	return s.commit(t, Balances, func() {
		s.state.Balances = &Snapshot[model.Balances]{Value: b, FetchedAt: at}
	})
}

func (s *Store) CommitPositions(t Ticket, p []model.Position, at time.Time) bool {
	if p == nil {
		p = []model.Position{}
	}
	return s.commit(t, Positions, func() {
		s.state.Positions = &Snapshot[[]model.Position]{Value: p, FetchedAt: at}
	})
}

func (s *Store) CommitOrders(t Ticket, o []model.Order, at time.Time) bool {
	if o == nil {
		o = []model.Order{}
	}
	return s.commit(t, Orders, func() {
		s.state.Orders = &Snapshot[[]model.Order]{Value: o, FetchedAt: at}
	})
}

func (s *Store) Balances() *Snapshot[model.Balances] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Balances
}

func (s *Store) Positions() *Snapshot[[]model.Position] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Positions
}

func (s *Store) Orders() *Snapshot[[]model.Order] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Orders
}

// VisibleOrders projects the current orders snapshot through the current
// filter. It returns nil while no orders have been fetched.
func (s *Store) VisibleOrders() []model.Order {
	s.mu.Lock()
	orders, cfg := s.state.Orders, s.state.Filter
	s.mu.Unlock()

	if orders == nil {
		return nil
	}
	return filter.Filter(orders.Value, cfg)
}

func (s *Store) Filter() filter.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Filter
}

func (s *Store) SetFilter(cfg filter.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filter = cfg
}

func (s *Store) SetStatusVisible(status model.OrderStatus, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filter = s.state.Filter.Set(status, visible)
}

func (s *Store) Draft() model.PlaceOrderDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Draft
}

func (s *Store) SetDraft(d model.PlaceOrderDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Draft = d
}

// ResetDraft discards the submitted draft.
func (s *Store) ResetDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Draft = model.NewPlaceOrderDraft()
}

func (s *Store) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Page
}

func (s *Store) SetPage(p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Page = p
}

func (s *Store) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Message
}

func (s *Store) SetMessage(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Message = msg
}

package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/STTM-NSU/tradier-dashboard/internal/broker"
	"github.com/STTM-NSU/tradier-dashboard/internal/broker/brokertest"
	"github.com/STTM-NSU/tradier-dashboard/internal/config"
	"github.com/STTM-NSU/tradier-dashboard/internal/logger"
	"github.com/STTM-NSU/tradier-dashboard/internal/model"
	"github.com/STTM-NSU/tradier-dashboard/internal/session"
)

var _fetchedAt = time.Date(2024, 5, 2, 15, 30, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T, cfg config.RefreshConfig) (*Coordinator, *brokertest.Fake, *session.Store) {
	t.Helper()
	gw := brokertest.New()
	store := session.NewStore()
	c := NewCoordinator(gw, store, cfg, logger.NewNopLogger())
	c.now = func() time.Time { return _fetchedAt }
	return c, gw, store
}

func TestRefreshBalances(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{})
	gw.SetBalances(model.Balances{AccountNumber: "VA000001", TotalEquity: 1500.25})

	require.NoError(t, c.RefreshBalances(context.Background()))

	b := store.Balances()
	require.NotNil(t, b)
	assert.Equal(t, 1500.25, b.Value.TotalEquity)
	assert.Equal(t, _fetchedAt, b.FetchedAt)
	assert.Equal(t, []string{"VA000001"}, gw.Accounts(brokertest.OpBalances))
	assert.Equal(t, 1, gw.Calls(brokertest.OpProfile))
	assert.Equal(t, "balances refreshed", store.Message())
}

func TestRefreshPositionsAndOrders(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{})
	gw.SetPositions([]model.Position{{Symbol: "AAPL", Quantity: 10}, {Symbol: "MSFT", Quantity: 2}})
	gw.SetOrders([]model.Order{{ID: 7, Symbol: "SPY", Status: model.StatusOpen}})

	require.NoError(t, c.RefreshPositions(context.Background()))
	require.NoError(t, c.RefreshOrders(context.Background()))

	require.NotNil(t, store.Positions())
	assert.Equal(t, "AAPL", store.Positions().Value[0].Symbol)
	assert.Equal(t, "MSFT", store.Positions().Value[1].Symbol)
	require.NotNil(t, store.Orders())
	assert.Equal(t, int64(7), store.Orders().Value[0].ID)
	assert.Equal(t, "1 orders loaded", store.Message())
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{})
	gw.SetOrders([]model.Order{{ID: 1, Status: model.StatusOpen}})
	require.NoError(t, c.RefreshOrders(context.Background()))
	before := store.Orders()

	gw.SetOrders([]model.Order{{ID: 1, Status: model.StatusFilled}})
	gw.FailNext(brokertest.OpOrders, &broker.GatewayError{Op: "get orders", StatusCode: 502, Message: "bad gateway"})

	err := c.RefreshOrders(context.Background())
	require.Error(t, err)

	var gwErr *broker.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, 502, gwErr.StatusCode)

	assert.Same(t, before, store.Orders())
	assert.Equal(t, model.StatusOpen, store.Orders().Value[0].Status)
	assert.Contains(t, store.Message(), "failed to refresh orders")
}

func TestRefreshNoAccountsKeepsBalances(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{})
	gw.SetBalances(model.Balances{AccountNumber: "VA000001", TotalCash: 42})
	require.NoError(t, c.RefreshBalances(context.Background()))

	gw.SetProfile(model.Profile{ID: "id-test"})
	gw.SetBalances(model.Balances{AccountNumber: "VA000001", TotalCash: 0})

	err := c.RefreshBalances(context.Background())
	assert.ErrorIs(t, err, broker.ErrProfileUnavailable)
	assert.Equal(t, 42.0, store.Balances().Value.TotalCash)
	assert.Equal(t, 1, gw.Calls(brokertest.OpBalances))
}

func TestRefreshBeforeFirstFetchStaysEmpty(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{})
	gw.FailNext(brokertest.OpProfile, errors.New("dial tcp: connection refused"))

	require.Error(t, c.RefreshPositions(context.Background()))
	assert.Nil(t, store.Positions())
}

func TestSlowRefreshDoesNotOverwriteNewer(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{})
	gw.SetOrders([]model.Order{{ID: 1, Status: model.StatusOpen}})

	// The first orders fetch blocks until the second one has committed.
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	gw.SetHook(brokertest.OpOrders, func(context.Context) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
	})

	done := make(chan error)
	go func() { done <- c.RefreshOrders(context.Background()) }()
	<-entered

	gw.SetOrders([]model.Order{{ID: 1, Status: model.StatusCanceled}})
	require.NoError(t, c.RefreshOrders(context.Background()))
	assert.Equal(t, model.StatusCanceled, store.Orders().Value[0].Status)

	// the blocked fetch now reads the older book and must lose
	gw.SetOrders([]model.Order{{ID: 1, Status: model.StatusOpen}})
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, model.StatusCanceled, store.Orders().Value[0].Status)
}

func TestStoreUsableDuringHungFetch(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{})

	release := make(chan struct{})
	gw.SetHook(brokertest.OpBalances, func(context.Context) { <-release })

	done := make(chan error)
	go func() { done <- c.RefreshBalances(context.Background()) }()

	// Store reads and other resources proceed while balances hang.
	require.Eventually(t, func() bool { return gw.Calls(brokertest.OpProfile) == 1 }, time.Second, time.Millisecond)
	store.SetPage(session.OrdersPage)
	assert.Equal(t, session.OrdersPage, store.Page())
	require.NoError(t, c.RefreshOrders(context.Background()))

	close(release)
	require.NoError(t, <-done)
}

func TestRefreshAll(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{})
	gw.SetBalances(model.Balances{TotalEquity: 10})
	gw.SetPositions([]model.Position{{Symbol: "IBM"}})
	gw.FailNext(brokertest.OpOrders, errors.New("timeout"))

	err := c.RefreshAll(context.Background())
	require.Error(t, err)

	assert.NotNil(t, store.Balances())
	assert.NotNil(t, store.Positions())
	assert.Nil(t, store.Orders())
	assert.Equal(t, 3, gw.Calls(brokertest.OpProfile))
}

func TestEnsureBalances(t *testing.T) {
	c, gw, _ := newTestCoordinator(t, config.RefreshConfig{})

	require.NoError(t, c.EnsureBalances(context.Background()))
	require.NoError(t, c.EnsureBalances(context.Background()))
	assert.Equal(t, 1, gw.Calls(brokertest.OpBalances))
}

func TestRun(t *testing.T) {
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{Interval: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		c.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return store.Balances() != nil && store.Positions() != nil && store.Orders() != nil
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return gw.Calls(brokertest.OpOrders) >= 2 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunWithoutOnStartFetchesBalancesOnly(t *testing.T) {
	onStart := false
	c, gw, store := newTestCoordinator(t, config.RefreshConfig{Interval: time.Hour, OnStart: &onStart})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		c.Run(ctx)
	}()

	require.Eventually(t, func() bool { return store.Balances() != nil }, time.Second, 5*time.Millisecond)
	cancel()
	<-stopped

	assert.Equal(t, 0, gw.Calls(brokertest.OpOrders))
	assert.Nil(t, store.Orders())
}

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/STTM-NSU/tradier-dashboard/internal/broker"
	"github.com/STTM-NSU/tradier-dashboard/internal/broker/brokertest"
	"github.com/STTM-NSU/tradier-dashboard/internal/config"
	"github.com/STTM-NSU/tradier-dashboard/internal/journal"
	"github.com/STTM-NSU/tradier-dashboard/internal/logger"
	"github.com/STTM-NSU/tradier-dashboard/internal/model"
	"github.com/STTM-NSU/tradier-dashboard/internal/orders"
	"github.com/STTM-NSU/tradier-dashboard/internal/refresh"
	"github.com/STTM-NSU/tradier-dashboard/internal/session"
	"github.com/STTM-NSU/tradier-dashboard/internal/tradier"
)

type fakeConfigurer struct {
	creds tradier.Credentials
}

func (f *fakeConfigurer) Configure(creds tradier.Credentials) error {
	if creds.Token == "" {
		return config.ErrEmptyToken
	}
	f.creds = creds
	return nil
}

func (f *fakeConfigurer) Endpoint() string { return f.creds.Endpoint }

type testServer struct {
	gw      *brokertest.Fake
	store   *session.Store
	creds   *fakeConfigurer
	handler http.Handler
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	var ordersCfg config.OrdersConfig
	require.NoError(t, ordersCfg.Setup())

	log := logger.NewNopLogger()
	gw := brokertest.New()
	store := session.NewStore()
	coord := refresh.NewCoordinator(gw, store, config.RefreshConfig{}, log)
	mem := journal.NewMemory(8)
	creds := &fakeConfigurer{creds: tradier.Credentials{Token: "t", Endpoint: config.SandboxEndpoint}}

	return testServer{
		gw:    gw,
		store: store,
		creds: creds,
		handler: NewRouter(Deps{
			Store:     store,
			Refresher: coord,
			Orders:    orders.NewWorkflow(gw, store, coord, mem, ordersCfg, log),
			Gateway:   creds,
			Journal:   mem,
		}, log),
	}
}

func (s testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestSessionDefaults(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Page        string          `json:"page"`
		Filter      map[string]bool `json:"filter"`
		Endpoint    string          `json:"endpoint"`
		Environment string          `json:"environment"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "balance", resp.Page)
	assert.True(t, resp.Filter["pending"])
	assert.False(t, resp.Filter["filled"])
	assert.Equal(t, config.SandboxEndpoint, resp.Endpoint)
	assert.Equal(t, "sandbox", resp.Environment)
}

func TestBalancesBeforeAndAfterRefresh(t *testing.T) {
	s := newTestServer(t)
	s.gw.SetBalances(model.Balances{AccountNumber: "VA000001", AccountType: "cash", TotalEquity: 1234.5})

	rec := s.do(t, http.MethodGet, "/api/balances", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balances":null}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/refresh/balances", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/balances", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Balances map[string]any `json:"balances"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "$1234.50", resp.Balances["total_equity"])
	assert.NotContains(t, resp.Balances, "stock_buying_power")

	rec = s.do(t, http.MethodGet, "/api/balances/margin", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefreshErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/refresh/quotes", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.gw.SetProfile(model.Profile{ID: "id-test"})
	rec = s.do(t, http.MethodPost, "/api/refresh/orders", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "profile unavailable")
}

func TestRefreshAllAndPositions(t *testing.T) {
	s := newTestServer(t)
	s.gw.SetPositions([]model.Position{{Symbol: "AAPL", Quantity: 2, CostBasis: 300}})

	rec := s.do(t, http.MethodPost, "/api/refresh/all", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Positions []map[string]string `json:"positions"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Positions, 1)
	assert.Equal(t, "AAPL", resp.Positions[0]["symbol"])
	assert.Equal(t, "$150.00", resp.Positions[0]["cost_per_share"])
}

func TestOrdersFilterAndCancel(t *testing.T) {
	s := newTestServer(t)
	s.gw.SetOrders([]model.Order{
		{ID: 1, Symbol: "AAPL", Status: model.StatusOpen, Quantity: 1, RemainingQuantity: 1},
		{ID: 2, Symbol: "MSFT", Status: model.StatusFilled, Quantity: 1},
		{ID: 3, Symbol: "IBM", Status: model.StatusPending, Quantity: 1, RemainingQuantity: 1},
	})
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/api/refresh/orders", "").Code)

	ids := func(path string) []int64 {
		rec := s.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Orders []struct {
				ID int64 `json:"id"`
			} `json:"orders"`
		}
		decode(t, rec, &resp)
		out := []int64{}
		for _, o := range resp.Orders {
			out = append(out, o.ID)
		}
		return out
	}

	assert.Equal(t, []int64{1, 3}, ids("/api/orders"))
	assert.Equal(t, []int64{1, 2, 3}, ids("/api/orders?all=true"))

	rec := s.do(t, http.MethodPut, "/api/filter", `{"filled":true,"pending":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{1, 2}, ids("/api/orders"))

	rec = s.do(t, http.MethodDelete, "/api/orders/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{2}, ids("/api/orders"))

	rec = s.do(t, http.MethodDelete, "/api/orders/2", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/journal?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var j struct {
		Entries []journal.Entry `json:"entries"`
	}
	decode(t, rec, &j)
	require.Len(t, j.Entries, 1)
	assert.Equal(t, int64(2), j.Entries[0].OrderID)
	assert.NotEmpty(t, j.Entries[0].Error)
}

func TestPlaceOrderFromDraft(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/page", `{"page":"place_order"}`).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/draft", `{"class":"equity","type":"limit","symbol":"nvda","price":101.5}`).Code)

	rec := s.do(t, http.MethodPost, "/api/orders", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Order broker.OrderAck `json:"order"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, int64(1001), resp.Order.ID)

	placed := s.gw.Placed()
	require.Len(t, placed, 1)
	assert.Equal(t, "NVDA", placed[0].Symbol)
	assert.Equal(t, model.GTC, placed[0].Duration)
	assert.Equal(t, int64(1), placed[0].Quantity)

	assert.Equal(t, session.OrdersPage, s.store.Page())
	assert.Equal(t, model.NewPlaceOrderDraft(), s.store.Draft())
}

func TestPlaceOrderInvalid(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/orders", `{"class":"equity","type":"stop","symbol":"AMD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "stop price")
	assert.Equal(t, 0, s.gw.Calls(brokertest.OpPlace))

	rec = s.do(t, http.MethodPut, "/api/page", `{"page":"settings"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/draft", `{"class":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutCredentials(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/credentials", `{"token":"abc","environment":"production"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tradier.Credentials{Token: "abc", Endpoint: config.ProductionEndpoint}, s.creds.creds)

	rec = s.do(t, http.MethodPut, "/api/credentials", `{"token":"def"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.ProductionEndpoint, s.creds.creds.Endpoint)
	assert.Equal(t, "def", s.creds.creds.Token)

	rec = s.do(t, http.MethodPut, "/api/credentials", `{"token":"","environment":"sandbox"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/credentials", `{"token":"x","environment":"paper"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(orders.ErrSubmissionInFlight))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusBadGateway, statusFor(&broker.GatewayError{Op: "get orders"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestPlaceOrderBodyIgnoresSessionDraft(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/draft",
		`{"class":"equity","type":"stop_limit","symbol":"AAPL","price":180,"stop_price":181}`).Code)

	rec := s.do(t, http.MethodPost, "/api/orders", `{"class":"equity","type":"market","symbol":"msft"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	placed := s.gw.Placed()
	require.Len(t, placed, 1)
	assert.Equal(t, "MSFT", placed[0].Symbol)
	assert.Equal(t, model.Market, placed[0].Type)
	assert.Nil(t, placed[0].Price)
	assert.Nil(t, placed[0].StopPrice)
}

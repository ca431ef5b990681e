package tradier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/STTM-NSU/tradier-dashboard/internal/broker"
	"github.com/STTM-NSU/tradier-dashboard/internal/config"
	"github.com/STTM-NSU/tradier-dashboard/internal/logger"
	"github.com/STTM-NSU/tradier-dashboard/internal/model"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_profileURL   = "/v1/user/profile"
	_balancesURL  = "/v1/accounts/{account}/balances"
	_positionsURL = "/v1/accounts/{account}/positions"
	_ordersURL    = "/v1/accounts/{account}/orders"
	_orderURL     = "/v1/accounts/{account}/orders/{order}"
)

var _ broker.Gateway = (*Client)(nil)

type Credentials struct {
	Token    string
	Endpoint string
}

// Client talks to the Tradier brokerage REST API.
type Client struct {
	c           *resty.Client
	rateLimiter ratelimit.Limiter

	logger logger.Logger

	mu    sync.RWMutex
	creds Credentials
}

func NewClient(cfg config.TradierConfig, logger logger.Logger) *Client {
	client := resty.New().
		SetLogger(logger).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		AddContentTypeEncoder("json", encodeJSON).
		AddContentTypeDecoder("json", decodeJSON)

	c := &Client{
		c:           client,
		rateLimiter: ratelimit.New(cfg.RateLimitPerMinute, ratelimit.Per(time.Minute)),
		logger:      logger,
	}
	c.apply(Credentials{Token: cfg.Token, Endpoint: cfg.Endpoint})

	return c
}

// Configure swaps token and endpoint. Requests already on the wire finish
// with the old values.
func (c *Client) Configure(creds Credentials) error {
	if creds.Token == "" {
		return config.ErrEmptyToken
	}
	u, err := url.Parse(creds.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: bad endpoint", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("bad endpoint %q", creds.Endpoint)
	}

	c.apply(creds)
	c.logger.Infof("gateway configured for %s", creds.Endpoint)
	return nil
}

func (c *Client) apply(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
	c.c.SetBaseURL(creds.Endpoint).SetAuthToken(creds.Token)
}

func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.Endpoint
}

func (c *Client) Close() error {
	return c.c.Close()
}

func (c *Client) GetProfile(ctx context.Context) (model.Profile, error) {
	var res profileResponse
	req := c.c.R().SetResult(&res)
	if err := c.execute(ctx, "get profile", req, http.MethodGet, _profileURL); err != nil {
		return model.Profile{}, err
	}
	return res.toModel(), nil
}

func (c *Client) GetBalances(ctx context.Context, account string) (model.Balances, error) {
	var res balancesResponse
	req := c.c.R().
		SetPathParam("account", account).
		SetResult(&res)
	if err := c.execute(ctx, "get balances", req, http.MethodGet, _balancesURL); err != nil {
		return model.Balances{}, err
	}
	return res.toModel(), nil
}

func (c *Client) GetPositions(ctx context.Context, account string) ([]model.Position, error) {
	var res positionsResponse
	req := c.c.R().
		SetPathParam("account", account).
		SetResult(&res)
	if err := c.execute(ctx, "get positions", req, http.MethodGet, _positionsURL); err != nil {
		return nil, err
	}
	return res.toModel(), nil
}

// GetOrders returns today's orders, or the whole history when includeAll is set.
func (c *Client) GetOrders(ctx context.Context, account string, includeAll bool) ([]model.Order, error) {
	var res ordersResponse
	req := c.c.R().
		SetPathParam("account", account).
		SetQueryParam("includeTags", "true").
		SetResult(&res)
	if includeAll {
		req.SetQueryParam("filter", "all")
	}
	if err := c.execute(ctx, "get orders", req, http.MethodGet, _ordersURL); err != nil {
		return nil, err
	}

	orders, err := res.toModel()
	if err != nil {
		return nil, &broker.GatewayError{Op: "get orders", Message: "can't decode orders", Err: err}
	}
	return orders, nil
}

func (c *Client) CancelOrder(ctx context.Context, account string, orderID int64) (broker.OrderAck, error) {
	var res orderAckResponse
	req := c.c.R().
		SetPathParams(map[string]string{
			"account": account,
			"order":   strconv.FormatInt(orderID, 10),
		}).
		SetResult(&res)
	if err := c.execute(ctx, "cancel order", req, http.MethodDelete, _orderURL); err != nil {
		return broker.OrderAck{}, err
	}
	return res.toModel(), nil
}

func (c *Client) PlaceOrder(ctx context.Context, account string, o broker.OrderRequest) (broker.OrderAck, error) {
	form := map[string]string{
		"class":    string(o.Class),
		"symbol":   o.Symbol,
		"side":     string(o.Side),
		"quantity": strconv.FormatInt(o.Quantity, 10),
		"type":     string(o.Type),
		"duration": string(o.Duration),
	}
	if o.Price != nil {
		form["price"] = strconv.FormatFloat(*o.Price, 'f', -1, 64)
	}
	if o.StopPrice != nil {
		form["stop"] = strconv.FormatFloat(*o.StopPrice, 'f', -1, 64)
	}
	if o.OptionSymbol != "" {
		form["option_symbol"] = o.OptionSymbol
	}
	if o.Tag != "" {
		form["tag"] = o.Tag
	}

	var res orderAckResponse
	req := c.c.R().
		SetPathParam("account", account).
		SetFormData(form).
		SetResult(&res)
	if err := c.execute(ctx, "place order", req, http.MethodPost, _ordersURL); err != nil {
		return broker.OrderAck{}, err
	}
	return res.toModel(), nil
}

func (c *Client) execute(ctx context.Context, op string, req *resty.Request, method, url string) error {
	c.rateLimiter.Take()

	req.SetContext(ctx).SetError(&errorResponse{})
	resp, err := req.Execute(method, url)
	if err != nil {
		gwErr := &broker.GatewayError{Op: op, Err: err}
		if resp != nil && resp.RawResponse != nil {
			gwErr.StatusCode = resp.StatusCode()
		}
		return gwErr
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	c.logger.Debugf("got response %s %s status: %s, %s", method, resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsError() {
		msg := ""
		if e, ok := resp.Error().(*errorResponse); ok {
			msg = e.message()
		}
		if msg == "" {
			msg = resp.String()
		}
		return &broker.GatewayError{Op: op, StatusCode: resp.StatusCode(), Message: msg}
	}
	if !resp.IsSuccess() {
		return &broker.GatewayError{
			Op: op, StatusCode: resp.StatusCode(),
			Err: errors.New("unexpected response status " + resp.Status()),
		}
	}

	return nil
}

package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/STTM-NSU/tradier-dashboard/internal/broker"
	"github.com/STTM-NSU/tradier-dashboard/internal/config"
	"github.com/STTM-NSU/tradier-dashboard/internal/filter"
	"github.com/STTM-NSU/tradier-dashboard/internal/journal"
	"github.com/STTM-NSU/tradier-dashboard/internal/logger"
	"github.com/STTM-NSU/tradier-dashboard/internal/model"
	"github.com/STTM-NSU/tradier-dashboard/internal/orders"
	"github.com/STTM-NSU/tradier-dashboard/internal/session"
	"github.com/STTM-NSU/tradier-dashboard/internal/tradier"
	"github.com/STTM-NSU/tradier-dashboard/internal/view"
)

const (
	_journalDefaultLimit = 50
	_journalMaxLimit     = 500
)

type Refresher interface {
	Refresh(ctx context.Context, r session.Resource) error
	RefreshAll(ctx context.Context) error
}

type OrderActions interface {
	Cancel(ctx context.Context, orderID int64) error
	Submit(ctx context.Context, draft model.PlaceOrderDraft) (broker.OrderAck, error)
}

type Configurer interface {
	Configure(creds tradier.Credentials) error
	Endpoint() string
}

type Deps struct {
	Store     *session.Store
	Refresher Refresher
	Orders    OrderActions
	Gateway   Configurer
	Journal   journal.Recorder
}

type handler struct {
	Deps
	logger logger.Logger
}

// NewRouter mounts the dashboard API under /api.
func NewRouter(deps Deps, logger logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	h := &handler{Deps: deps, logger: logger.With("component", "http")}
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/session", h.getSession)
	api.GET("/balances", h.getBalances)
	api.GET("/balances/margin", h.getMargin)
	api.GET("/positions", h.getPositions)
	api.GET("/orders", h.getOrders)
	api.PUT("/filter", h.putFilter)
	api.PUT("/page", h.putPage)
	api.PUT("/draft", h.putDraft)
	api.PUT("/credentials", h.putCredentials)
	api.POST("/refresh/:resource", h.postRefresh)
	api.DELETE("/orders/:id", h.deleteOrder)
	api.POST("/orders", h.postOrder)
	api.GET("/journal", h.getJournal)

	return router
}

func (h *handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debugf("HTTP %s %s status=%d dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

type sessionResponse struct {
	Page        session.Page          `json:"page"`
	Message     string                `json:"message"`
	Filter      filter.Config         `json:"filter"`
	Draft       model.PlaceOrderDraft `json:"draft"`
	Endpoint    string                `json:"endpoint,omitempty"`
	Environment config.Environment    `json:"environment,omitempty"`
	FetchedAt   map[string]time.Time  `json:"fetched_at"`
}

func (h *handler) getSession(c *gin.Context) {
	st := h.Store.State()
	resp := sessionResponse{
		Page:      st.Page,
		Message:   st.Message,
		Filter:    st.Filter,
		Draft:     st.Draft,
		FetchedAt: make(map[string]time.Time),
	}
	if st.Balances != nil {
		resp.FetchedAt[session.Balances.String()] = st.Balances.FetchedAt
	}
	if st.Positions != nil {
		resp.FetchedAt[session.Positions.String()] = st.Positions.FetchedAt
	}
	if st.Orders != nil {
		resp.FetchedAt[session.Orders.String()] = st.Orders.FetchedAt
	}
	if h.Gateway != nil {
		resp.Endpoint = h.Gateway.Endpoint()
		if env, err := config.EnvironmentFor(resp.Endpoint); err == nil {
			resp.Environment = env
		}
	}
	writeJSON(c, http.StatusOK, resp)
}

type balancesResponse struct {
	Balances  *view.BalancesView `json:"balances"`
	FetchedAt *time.Time         `json:"fetched_at,omitempty"`
}

func (h *handler) getBalances(c *gin.Context) {
	var resp balancesResponse
	if snap := h.Store.Balances(); snap != nil {
		v := view.Balances(snap.Value)
		resp.Balances = &v
		resp.FetchedAt = &snap.FetchedAt
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *handler) getMargin(c *gin.Context) {
	snap := h.Store.Balances()
	if snap == nil {
		writeError(c, http.StatusNotFound, errors.New("balances not loaded"))
		return
	}
	m, err := view.Margin(snap.Value)
	if err != nil {
		writeError(c, http.StatusConflict, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}

func (h *handler) getPositions(c *gin.Context) {
	rows := []view.PositionRow{}
	if snap := h.Store.Positions(); snap != nil {
		rows = view.Positions(snap.Value)
	}
	writeJSON(c, http.StatusOK, gin.H{"positions": rows})
}

// getOrders returns the filtered orders; ?all=true skips the filter.
func (h *handler) getOrders(c *gin.Context) {
	var list []model.Order
	if all, _ := strconv.ParseBool(c.Query("all")); all {
		if snap := h.Store.Orders(); snap != nil {
			list = snap.Value
		}
	} else {
		list = h.Store.VisibleOrders()
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": view.Orders(list)})
}

func (h *handler) putFilter(c *gin.Context) {
	cfg := h.Store.Filter()
	if err := readJSON(c, &cfg); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	h.Store.SetFilter(cfg)
	writeJSON(c, http.StatusOK, cfg)
}

func (h *handler) putPage(c *gin.Context) {
	var req struct {
		Page string `json:"page"`
	}
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	page, err := session.ParsePage(req.Page)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	h.Store.SetPage(page)
	writeJSON(c, http.StatusOK, gin.H{"page": page})
}

func (h *handler) putDraft(c *gin.Context) {
	var d model.PlaceOrderDraft
	if err := readJSON(c, &d); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	h.Store.SetDraft(d)
	writeJSON(c, http.StatusOK, d)
}

type credentialsRequest struct {
	Token       string             `json:"token"`
	Endpoint    string             `json:"endpoint"`
	Environment config.Environment `json:"environment"`
}

func (h *handler) putCredentials(c *gin.Context) {
	var req credentialsRequest
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	endpoint := req.Endpoint
	switch {
	case endpoint != "":
	case req.Environment != "":
		var err error
		if endpoint, err = config.EndpointFor(req.Environment); err != nil {
			writeError(c, http.StatusBadRequest, err)
			return
		}
	default:
		endpoint = h.Gateway.Endpoint()
	}
	if err := h.Gateway.Configure(tradier.Credentials{Token: req.Token, Endpoint: endpoint}); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	h.Store.SetMessage("using %s", endpoint)
	writeJSON(c, http.StatusOK, gin.H{"endpoint": endpoint})
}

func (h *handler) postRefresh(c *gin.Context) {
	name := c.Param("resource")
	if name == "all" {
		if err := h.Refresher.RefreshAll(c.Request.Context()); err != nil {
			writeError(c, statusFor(err), err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	r, err := session.ParseResource(name)
	if err != nil {
		writeError(c, http.StatusNotFound, err)
		return
	}
	if err := h.Refresher.Refresh(c.Request.Context(), r); err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) deleteOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, errors.New("bad order id"))
		return
	}
	if err := h.Orders.Cancel(c.Request.Context(), id); err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// postOrder submits the request body, or the session draft when the body is
// empty.
func (h *handler) postOrder(c *gin.Context) {
	var draft model.PlaceOrderDraft
	switch err := readJSON(c, &draft); {
	case errors.Is(err, io.EOF):
		draft = h.Store.Draft()
	case err != nil:
		writeError(c, http.StatusBadRequest, err)
		return
	}
	ack, err := h.Orders.Submit(c.Request.Context(), draft)
	if err != nil && ack.ID == 0 {
		writeError(c, statusFor(err), err)
		return
	}
	// placed, but the follow-up refresh may have failed
	resp := gin.H{"order": ack}
	if err != nil {
		resp["warning"] = err.Error()
	}
	writeJSON(c, http.StatusCreated, resp)
}

func (h *handler) getJournal(c *gin.Context) {
	if h.Journal == nil {
		writeJSON(c, http.StatusOK, gin.H{"entries": []journal.Entry{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(_journalDefaultLimit)))
	if limit <= 0 {
		limit = _journalDefaultLimit
	}
	limit = min(limit, _journalMaxLimit)

	entries, err := h.Journal.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("%s: can't read journal", err)
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"entries": entries})
}

func statusFor(err error) int {
	var gwErr *broker.GatewayError
	switch {
	case errors.Is(err, model.ErrInvalidDraft), errors.Is(err, config.ErrEmptyToken):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, broker.ErrProfileUnavailable), errors.As(err, &gwErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// readJSON returns io.EOF for an empty body.
func readJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil {
		return io.EOF
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return io.EOF
	}
	return sonic.Unmarshal(body, v)
}

func writeJSON(c *gin.Context, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		c.Data(http.StatusInternalServerError, gin.MIMEPlain, []byte(err.Error()))
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

func writeError(c *gin.Context, status int, err error) {
	writeJSON(c, status, gin.H{"error": strings.TrimSpace(err.Error())})
}

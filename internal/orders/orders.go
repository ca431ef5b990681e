package orders

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/STTM-NSU/tradier-dashboard/internal/broker"
	"github.com/STTM-NSU/tradier-dashboard/internal/config"
	"github.com/STTM-NSU/tradier-dashboard/internal/journal"
	"github.com/STTM-NSU/tradier-dashboard/internal/logger"
	"github.com/STTM-NSU/tradier-dashboard/internal/model"
	"github.com/STTM-NSU/tradier-dashboard/internal/session"
)

const _refreshTimeout = 30 * time.Second

var ErrSubmissionInFlight = errors.New("an order submission is already in flight")

// Refresher re-reads the orders snapshot after a mutation.
type Refresher interface {
	RefreshOrders(ctx context.Context) error
}

type Workflow struct {
	gw        broker.Gateway
	store     *session.Store
	refresher Refresher
	journal   journal.Recorder
	cfg       config.OrdersConfig
	logger    logger.Logger

	submitting atomic.Bool
	newTag     func() string
}

func NewWorkflow(
	gw broker.Gateway,
	store *session.Store,
	refresher Refresher,
	recorder journal.Recorder,
	cfg config.OrdersConfig,
	logger logger.Logger) *Workflow {
	w := &Workflow{
		gw:        gw,
		store:     store,
		refresher: refresher,
		journal:   recorder,
		cfg:       cfg,
		logger:    logger.With("component", "orders"),
	}
	w.newTag = func() string { return w.cfg.TagPrefix + "-" + uuid.NewString() }
	return w
}

// Cancel asks the broker to cancel orderID and then refreshes orders whatever
// the outcome, so the session reflects the broker after every attempt.
func (w *Workflow) Cancel(ctx context.Context, orderID int64) error {
	entry := journal.Entry{Action: journal.ActionCancel, OrderID: orderID}

	cancelErr := w.cancel(ctx, orderID, &entry)
	w.record(ctx, entry, cancelErr)

	refreshErr := w.refreshOrders(ctx)

	if cancelErr != nil {
		w.logger.Warnf("%s: can't cancel order %d", cancelErr, orderID)
		w.store.SetMessage("failed to cancel order %d: %s", orderID, cancelErr)
	} else if refreshErr == nil {
		w.logger.Infof("order %d canceled", orderID)
		w.store.SetMessage("order %d canceled", orderID)
	}

	return errors.Join(cancelErr, refreshErr)
}

func (w *Workflow) cancel(ctx context.Context, orderID int64, entry *journal.Entry) error {
	account, err := broker.ResolveAccount(ctx, w.gw)
	if err != nil {
		return err
	}
	entry.Account = account

	if _, err := w.gw.CancelOrder(ctx, account, orderID); err != nil {
		return fmt.Errorf("%w: can't cancel order %d", err, orderID)
	}
	return nil
}

// Submit places the draft. Invalid drafts fail before any broker call and
// leave the session as it was. Only one submission runs at a time.
func (w *Workflow) Submit(ctx context.Context, draft model.PlaceOrderDraft) (broker.OrderAck, error) {
	draft = draft.Normalize(w.cfg.Defaults())
	if err := draft.Validate(); err != nil {
		w.store.SetMessage("%s", err)
		return broker.OrderAck{}, err
	}

	if !w.submitting.CompareAndSwap(false, true) {
		return broker.OrderAck{}, ErrSubmissionInFlight
	}
	defer w.submitting.Store(false)

	req := broker.OrderRequest{
		Class:     draft.Class,
		Symbol:    draft.Symbol,
		Side:      draft.Side,
		Quantity:  draft.Quantity,
		Type:      draft.Type,
		Duration:  draft.Duration,
		Price:     draft.Price,
		StopPrice: draft.StopPrice,
		Tag:       w.newTag(),
	}
	if draft.Class == model.Option {
		req.OptionSymbol = draft.OptionSymbol
	}
	entry := journal.Entry{
		Action: journal.ActionPlace,
		Symbol: req.Symbol,
		Side:   string(req.Side),
		Qty:    req.Quantity,
		Tag:    req.Tag,
	}

	ack, placeErr := w.place(ctx, req, &entry)
	entry.OrderID = ack.ID
	w.record(ctx, entry, placeErr)

	if placeErr != nil {
		w.logger.Warnf("%s: can't place %s order for %s", placeErr, req.Side, req.Symbol)
		refreshErr := w.refreshOrders(ctx)
		w.store.SetMessage("failed to place order: %s", placeErr)
		return ack, errors.Join(placeErr, refreshErr)
	}

	w.store.ResetDraft()
	w.store.SetPage(session.OrdersPage)
	refreshErr := w.refreshOrders(ctx)
	if refreshErr == nil {
		w.store.SetMessage("order %d placed", ack.ID)
	}
	w.logger.Infof("order %d placed: %s %d %s (%s, %s)", ack.ID, req.Side, req.Quantity, req.Symbol, req.Type, req.Duration)

	return ack, refreshErr
}

func (w *Workflow) place(ctx context.Context, req broker.OrderRequest, entry *journal.Entry) (broker.OrderAck, error) {
	account, err := broker.ResolveAccount(ctx, w.gw)
	if err != nil {
		return broker.OrderAck{}, err
	}
	entry.Account = account

	ack, err := w.gw.PlaceOrder(ctx, account, req)
	if err != nil {
		return broker.OrderAck{}, fmt.Errorf("%w: can't place order", err)
	}
	return ack, nil
}

// refreshOrders outlives the caller's cancellation: once the broker has seen
// the mutation the session must catch up with it.
func (w *Workflow) refreshOrders(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), _refreshTimeout)
	defer cancel()
	return w.refresher.RefreshOrders(ctx)
}

func (w *Workflow) record(ctx context.Context, e journal.Entry, actionErr error) {
	if w.journal == nil {
		return
	}
	if actionErr != nil {
		e.Error = actionErr.Error()
	}
	if err := w.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		w.logger.Errorf("%s: can't journal %s action", err, e.Action)
	}
}

package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/STTM-NSU/tradier-dashboard/internal/broker"
	"github.com/STTM-NSU/tradier-dashboard/internal/config"
	"github.com/STTM-NSU/tradier-dashboard/internal/logger"
	"github.com/STTM-NSU/tradier-dashboard/internal/session"
)

// Coordinator fetches snapshots from the gateway and commits them to the
// store. Gateway calls run without the store lock.
type Coordinator struct {
	gw     broker.Gateway
	store  *session.Store
	cfg    config.RefreshConfig
	logger logger.Logger

	now func() time.Time
}

func NewCoordinator(gw broker.Gateway, store *session.Store, cfg config.RefreshConfig, logger logger.Logger) *Coordinator {
	cfg.Setup()
	return &Coordinator{
		gw:     gw,
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "refresh"),
		now:    time.Now,
	}
}

// Refresh runs one profile, account, resource sequence. On failure the
// previous snapshot stays in place.
func (c *Coordinator) Refresh(ctx context.Context, r session.Resource) error {
	ticket := c.store.BeginRefresh(r)

	err := c.fetchAndCommit(ctx, ticket)
	if err != nil {
		c.store.SetMessage("failed to refresh %s: %s", r, err)
		c.logger.Warnf("%s: can't refresh %s", err, r)
		return fmt.Errorf("%w: can't refresh %s", err, r)
	}
	return nil
}

func (c *Coordinator) fetchAndCommit(ctx context.Context, ticket session.Ticket) error {
	account, err := broker.ResolveAccount(ctx, c.gw)
	if err != nil {
		return err
	}

	var (
		committed bool
		summary   string
	)
	switch r := ticket.Resource(); r {
	case session.Balances:
		b, err := c.gw.GetBalances(ctx, account)
		if err != nil {
			return err
		}
		committed = c.store.CommitBalances(ticket, b, c.now())
		summary = "balances refreshed"
	case session.Positions:
		p, err := c.gw.GetPositions(ctx, account)
		if err != nil {
			return err
		}
		committed = c.store.CommitPositions(ticket, p, c.now())
		summary = fmt.Sprintf("%d positions loaded", len(p))
	case session.Orders:
		o, err := c.gw.GetOrders(ctx, account, c.cfg.IncludeAllOrders)
		if err != nil {
			return err
		}
		committed = c.store.CommitOrders(ticket, o, c.now())
		summary = fmt.Sprintf("%d orders loaded", len(o))
	default:
		return fmt.Errorf("unknown resource %s", r)
	}

	if !committed {
		c.logger.Debugf("dropped stale %s snapshot", ticket.Resource())
		return nil
	}
	c.store.SetMessage("%s", summary)
	c.logger.Debugf("%s for account %s", summary, account)
	return nil
}

func (c *Coordinator) RefreshBalances(ctx context.Context) error {
	return c.Refresh(ctx, session.Balances)
}

func (c *Coordinator) RefreshPositions(ctx context.Context) error {
	return c.Refresh(ctx, session.Positions)
}

func (c *Coordinator) RefreshOrders(ctx context.Context) error {
	return c.Refresh(ctx, session.Orders)
}

// RefreshAll refreshes every resource in parallel. A failing resource does
// not cancel the others.
func (c *Coordinator) RefreshAll(ctx context.Context) error {
	resources := session.Resources()
	errs := make([]error, len(resources))

	var g errgroup.Group
	for i, r := range resources {
		g.Go(func() error {
			errs[i] = c.Refresh(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// EnsureBalances fetches balances only when none have been loaded yet.
func (c *Coordinator) EnsureBalances(ctx context.Context) error {
	if c.store.Balances() != nil {
		return nil
	}
	return c.RefreshBalances(ctx)
}

// Run refreshes everything on the configured interval until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	if *c.cfg.OnStart {
		if err := c.RefreshAll(ctx); err != nil {
			c.logger.Errorf("%s: initial refresh failed", err)
		}
	} else if err := c.EnsureBalances(ctx); err != nil {
		c.logger.Errorf("%s: initial balances fetch failed", err)
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.RefreshAll(ctx); err != nil {
				c.logger.Errorf("%s: periodic refresh failed", err)
			}
		}
	}
}

package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	_createOrderActions = `CREATE TABLE IF NOT EXISTS order_actions (
								id BIGSERIAL PRIMARY KEY,
								at TIMESTAMPTZ NOT NULL,
								action TEXT NOT NULL,
								account TEXT NOT NULL,
								order_id BIGINT NOT NULL DEFAULT 0,
								symbol TEXT NOT NULL DEFAULT '',
								side TEXT NOT NULL DEFAULT '',
								quantity BIGINT NOT NULL DEFAULT 0,
								tag TEXT NOT NULL DEFAULT '',
								error TEXT NOT NULL DEFAULT ''
							);`
	_insertOrderAction = `INSERT INTO order_actions (
								at, action, account, order_id, symbol, side, quantity, tag, error
							) VALUES (:at, :action, :account, :order_id, :symbol, :side, :quantity, :tag, :error)`
	_queryRecentOrderActions = "SELECT * FROM order_actions ORDER BY id DESC LIMIT $1"

	_recentDefaultLimit = 100
)

type Postgres struct {
	db *sqlx.DB
}

var _ Recorder = (*Postgres)(nil)

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, _createOrderActions); err != nil {
		return fmt.Errorf("%w: can't create order_actions table", err)
	}
	return nil
}

func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if _, err := p.db.NamedExecContext(ctx, _insertOrderAction, e); err != nil {
		return fmt.Errorf("%w: can't insert %s action", err, e.Action)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = _recentDefaultLimit
	}
	entries := make([]Entry, 0, limit)
	if err := p.db.SelectContext(ctx, &entries, _queryRecentOrderActions, limit); err != nil {
		return nil, fmt.Errorf("%w: can't query order actions", err)
	}
	return entries, nil
}

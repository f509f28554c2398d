// Package client exposes the pooled session surface: connection pool
// operations, query execution, transactions, and bulk loading.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/puddle/v2"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/config"
	"github.com/tdsio/mssqlx/connection"
	"github.com/tdsio/mssqlx/internal/debug"
	"github.com/tdsio/mssqlx/query"
	"github.com/tdsio/mssqlx/result"
	"github.com/tdsio/mssqlx/tds"
)

// ValidateFunc decides whether a pooled connection may be handed out.
// Returning false destroys the connection and acquires another.
type ValidateFunc func(*connection.Connection) bool

// options collects pool construction options.
type options struct {
	dial     tds.Dialer
	log      *slog.Logger
	validate ValidateFunc
}

// Option configures pool construction.
type Option func(*options)

// WithDialer overrides the registered transport dialer.
func WithDialer(d tds.Dialer) Option {
	return func(o *options) { o.dial = d }
}

// WithLogger sets the pool's logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithValidate installs a connection validation hook. The default is
// permissive: any connection whose transport is still live passes.
func WithValidate(fn ValidateFunc) Option {
	return func(o *options) { o.validate = fn }
}

// ConnectionPool hands out Connections through a generic resource pool.
// The pool is the unit of concurrency: one Connection never serves two
// executions at once.
type ConnectionPool struct {
	cfg      *config.Config
	log      *slog.Logger
	dial     tds.Dialer
	validate ValidateFunc
	pool     *puddle.Pool[*connection.Connection]
}

// Connect builds a pool for the given configuration. Each pooled
// connection is connected before it is handed to the pool and
// disconnected when it leaves.
func Connect(cfg *config.Config, opts ...Option) (*ConnectionPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{
		dial:     tds.DefaultDialer(),
		log:      debug.Logger(),
		validate: func(*connection.Connection) bool { return true },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.dial == nil {
		return nil, fmt.Errorf("mssqlx: no transport dialer registered (import a TDS driver or use WithDialer)")
	}

	p := &ConnectionPool{
		cfg:      cfg,
		log:      o.log,
		dial:     o.dial,
		validate: o.validate,
	}

	pool, err := puddle.NewPool(&puddle.Config[*connection.Connection]{
		Constructor: p.construct,
		Destructor:  p.destruct,
		MaxSize:     cfg.Pool.MaxSize,
	})
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// construct is the pool's resource factory: a Connection is only handed
// to the pool once live.
func (p *ConnectionPool) construct(ctx context.Context) (*connection.Connection, error) {
	conn := connection.New(p.cfg, p.log, p.dial)
	if err := conn.Connect(); err != nil {
		return nil, err
	}
	return conn, nil
}

// destruct disconnects a Connection on its way out of the pool.
func (p *ConnectionPool) destruct(conn *connection.Connection) {
	if err := conn.Disconnect(); err != nil {
		p.log.Warn("disconnect on destroy failed", "conn", conn.ID, "error", err)
	}
}

// acquire checks a live, validated Connection out of the pool.
func (p *ConnectionPool) acquire(ctx context.Context) (*puddle.Resource[*connection.Connection], error) {
	if p.cfg.Pool.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Pool.AcquireTimeout)
		defer cancel()
	}
	for {
		res, err := p.pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", mssqlx.ErrConnection, err)
		}
		conn := res.Value()
		if conn.Dead() || !p.validate(conn) {
			res.Destroy()
			continue
		}
		return res, nil
	}
}

// checkin returns an acquired resource exactly once: dead connections are
// destroyed and replaced, live ones released for reuse.
func checkin(res *puddle.Resource[*connection.Connection]) {
	if res.Value().Dead() {
		res.Destroy()
		return
	}
	res.Release()
}

// Query executes one query on a pooled connection and settles with its
// ordered results. A failed statement does not poison the pool; the
// connection is released (or destroyed and replaced) either way.
func (p *ConnectionPool) Query(ctx context.Context, q *query.Query) (*result.Outcome, error) {
	res, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer checkin(res)

	conn := res.Value()
	if err := conn.Reserve(connection.StateExecuting); err != nil {
		return nil, err
	}
	defer conn.Release()

	return executeOn(conn, q, p.cfg.RequestTimeout, p.cfg.RowsAsRecords)
}

// QueryString executes raw statement text.
func (p *ConnectionPool) QueryString(ctx context.Context, statement string) (*result.Outcome, error) {
	q, err := query.NewQuery(statement)
	if err != nil {
		return nil, err
	}
	return p.Query(ctx, q)
}

// Transaction starts an empty statement queue bound to this pool. Nothing
// touches the database until Commit.
func (p *ConnectionPool) Transaction() *Transaction {
	return newTransaction(p)
}

// Bulk starts a bulk loader for the given table. A connection is acquired
// lazily on the first Column or Add call.
func (p *ConnectionPool) Bulk(ctx context.Context, table string) *BulkLoader {
	return newBulkLoader(ctx, p, table)
}

// Ping round-trips a trivial statement through a pooled connection.
func (p *ConnectionPool) Ping(ctx context.Context) error {
	_, err := p.QueryString(ctx, "SELECT 1")
	return err
}

// Destroy closes the pool, disconnecting every pooled connection.
func (p *ConnectionPool) Destroy() {
	p.pool.Close()
}

// Stat reports the underlying pool statistics.
func (p *ConnectionPool) Stat() *puddle.Stat {
	return p.pool.Stat()
}

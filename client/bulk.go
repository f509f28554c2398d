package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/puddle/v2"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/connection"
	"github.com/tdsio/mssqlx/tds"
)

// BulkLoader accumulates column declarations and rows for one
// high-throughput insert. A connection is acquired lazily on the first
// Column or Add call, never at construction, and is returned to the pool
// exactly once when Execute settles.
type BulkLoader struct {
	pool  *ConnectionPool
	ctx   context.Context
	table string

	mu       sync.Mutex
	res      *puddle.Resource[*connection.Connection]
	cols     []tds.BulkColumn
	rows     [][]any
	colIndex map[string]int
	executed bool
}

// BulkColumnOptions carries per-column declaration options.
type BulkColumnOptions struct {
	Length   int
	Nullable bool
}

func newBulkLoader(ctx context.Context, p *ConnectionPool, table string) *BulkLoader {
	return &BulkLoader{
		pool:     p,
		ctx:      ctx,
		table:    table,
		colIndex: make(map[string]int),
	}
}

// ensureLocked acquires and reserves the loader's connection on first use.
func (b *BulkLoader) ensureLocked() error {
	if b.res != nil {
		return nil
	}
	res, err := b.pool.acquire(b.ctx)
	if err != nil {
		return err
	}
	if err := res.Value().Reserve(connection.StateExecuting); err != nil {
		checkin(res)
		return err
	}
	b.res = res
	return nil
}

// Column declares one target column.
func (b *BulkLoader) Column(name string, t tds.Type, opts BulkColumnOptions) error {
	if name == "" {
		return mssqlx.Validationf("bulk.Column", "column name must be a non-empty string")
	}
	if t == tds.TypeNone {
		return mssqlx.Validationf("bulk.Column", "column %q: type is required", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.executed {
		return mssqlx.Validationf("bulk.Column", "bulk load already executed")
	}
	if _, exists := b.colIndex[name]; exists {
		return mssqlx.Validationf("bulk.Column", "duplicate column name %q", name)
	}
	if err := b.ensureLocked(); err != nil {
		return err
	}
	b.colIndex[name] = len(b.cols)
	b.cols = append(b.cols, tds.BulkColumn{
		Name:     name,
		Type:     t,
		Length:   opts.Length,
		Nullable: opts.Nullable,
	})
	return nil
}

// Add accepts one row: a name-keyed record or a positional value slice
// matching the declared column order. Nil rows are skipped without error;
// any other shape is a ValidationError.
func (b *BulkLoader) Add(row any) error {
	if row == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.executed {
		return mssqlx.Validationf("bulk.Add", "bulk load already executed")
	}
	if len(b.cols) == 0 {
		return mssqlx.Validationf("bulk.Add", "columns must be declared before rows")
	}
	if err := b.ensureLocked(); err != nil {
		return err
	}

	switch v := row.(type) {
	case []any:
		if len(v) != len(b.cols) {
			return mssqlx.Validationf("bulk.Add", "row has %d values, %d columns declared", len(v), len(b.cols))
		}
		b.rows = append(b.rows, v)
	case map[string]any:
		values := make([]any, len(b.cols))
		for name, value := range v {
			i, ok := b.colIndex[name]
			if !ok {
				return mssqlx.Validationf("bulk.Add", "row references undeclared column %q", name)
			}
			values[i] = value
		}
		b.rows = append(b.rows, values)
	default:
		return mssqlx.Validationf("bulk.Add", "row must be a map or a value slice, got %T", row)
	}
	return nil
}

// Execute runs the accumulated bulk insert through the transport's
// bulk-load primitive and resolves with the inserted row count. The
// connection goes back to the pool exactly once, whatever the outcome.
func (b *BulkLoader) Execute() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.executed {
		return 0, mssqlx.Validationf("bulk.Execute", "bulk load already executed")
	}
	if b.res == nil {
		return 0, mssqlx.Validationf("bulk.Execute", "nothing to load: declare columns and rows first")
	}
	b.executed = true

	conn := b.res.Value()
	defer func() {
		conn.Release()
		checkin(b.res)
		b.res = nil
	}()

	transport := conn.Transport()
	if transport == nil || transport.Closed() {
		return 0, fmt.Errorf("%w: connection has no live transport", mssqlx.ErrConnection)
	}

	type bulkOutcome struct {
		count int64
		err   error
	}
	done := make(chan bulkOutcome, 1)
	load := &tds.BulkLoad{
		Table:   b.table,
		Columns: b.cols,
		Rows:    b.rows,
		Done: func(rowCount int64, err error) {
			done <- bulkOutcome{count: rowCount, err: err}
		},
	}
	transport.BulkLoad(load)

	outcome := <-done
	if outcome.err != nil {
		conn.Log().Error("bulk load failed", "table", b.table, "error", outcome.err)
		return 0, executionError(outcome.err, 0)
	}
	return outcome.count, nil
}

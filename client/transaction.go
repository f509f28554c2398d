package client

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/puddle/v2"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/connection"
	"github.com/tdsio/mssqlx/query"
	"github.com/tdsio/mssqlx/result"
)

// txEntry is one queued unit: a statement, or a savepoint marker when
// savepoint is non-empty.
type txEntry struct {
	stmt      *query.Query
	savepoint string
}

var savepointNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,31}$`)

// Transaction queues statements and savepoint markers and executes them as
// one unit. The queue invariant holds at all times: a savepoint marker is
// never first and never immediately follows another savepoint marker.
//
// A failed Commit leaves the transaction open, still holding its
// connection, so Rollback remains valid; entries that already executed are
// consumed, the rest stay queued.
type Transaction struct {
	pool *ConnectionPool

	mu      sync.Mutex
	entries []txEntry
	used    map[string]struct{}
	res     *puddle.Resource[*connection.Connection]
	open    bool
}

func newTransaction(p *ConnectionPool) *Transaction {
	return &Transaction{pool: p, used: make(map[string]struct{})}
}

// Query appends a statement to the queue; nothing executes until Commit.
// Parameters are bound with inferred types, applied in sorted-name order
// so repeated runs are deterministic.
func (t *Transaction) Query(statement string, params map[string]any) error {
	q, err := query.NewQuery(statement)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := q.In(name, params[name]); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, txEntry{stmt: q})
	return nil
}

// Append queues a prebuilt query.
func (t *Transaction) Append(q *query.Query) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, txEntry{stmt: q})
}

// SavePoint appends a savepoint marker and returns the name used. An empty
// name gets a generated token unique within this transaction's lifetime.
// A savepoint must follow a statement: an empty queue or a preceding
// savepoint marker is a ValidationError.
func (t *Transaction) SavePoint(name string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return "", mssqlx.Validationf("transaction.SavePoint", "a savepoint must follow a statement")
	}
	if t.entries[len(t.entries)-1].savepoint != "" {
		return "", mssqlx.Validationf("transaction.SavePoint", "a savepoint may not follow another savepoint")
	}

	if name == "" {
		name = t.generateNameLocked()
	} else if !savepointNameRe.MatchString(name) {
		return "", mssqlx.Validationf("transaction.SavePoint", "invalid savepoint name %q", name)
	}

	t.used[name] = struct{}{}
	t.entries = append(t.entries, txEntry{savepoint: name})
	return name, nil
}

// generateNameLocked produces a collision-resistant token unique within
// this transaction.
func (t *Transaction) generateNameLocked() string {
	for {
		token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		name := "sp_" + token
		if _, taken := t.used[name]; !taken {
			return name
		}
	}
}

// Clear empties the queue without touching the database.
func (t *Transaction) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Commit opens the transaction boundary (unless a previous failed Commit
// left it open), executes the queued entries in order, and finalizes the
// boundary. Each statement's results are collected into one flat ordered
// list. On any failure the transaction stays open for Rollback.
func (t *Transaction) Commit(ctx context.Context) ([]*result.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		res, err := t.pool.acquire(ctx)
		if err != nil {
			return nil, err
		}
		conn := res.Value()
		if err := conn.Reserve(connection.StateTransacting); err != nil {
			checkin(res)
			return nil, err
		}
		if err := t.run(conn, "BEGIN TRANSACTION"); err != nil {
			conn.Release()
			checkin(res)
			return nil, err
		}
		t.res = res
		t.open = true
	}

	conn := t.res.Value()
	var results []*result.Result
	for len(t.entries) > 0 {
		entry := t.entries[0]
		if entry.savepoint != "" {
			if err := t.run(conn, "SAVE TRANSACTION "+entry.savepoint); err != nil {
				return results, err
			}
		} else {
			out, err := executeOn(conn, entry.stmt, t.pool.cfg.RequestTimeout, t.pool.cfg.RowsAsRecords)
			if err != nil {
				return results, err
			}
			results = append(results, out.Results...)
		}
		t.entries = t.entries[1:]
	}

	if err := t.run(conn, "COMMIT TRANSACTION"); err != nil {
		return results, err
	}
	t.closeLocked()
	return results, nil
}

// Rollback reverts the open transaction. With an empty savepoint name the
// whole transaction is reverted and the boundary closed; with a name only
// the work after that savepoint is reverted and the boundary stays open
// for further statements.
func (t *Transaction) Rollback(ctx context.Context, savepoint string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		return mssqlx.Validationf("transaction.Rollback", "no open transaction")
	}

	conn := t.res.Value()
	if savepoint != "" {
		if !savepointNameRe.MatchString(savepoint) {
			return mssqlx.Validationf("transaction.Rollback", "invalid savepoint name %q", savepoint)
		}
		return t.run(conn, "ROLLBACK TRANSACTION "+savepoint)
	}

	err := t.run(conn, "ROLLBACK TRANSACTION")
	t.entries = nil
	t.closeLocked()
	return err
}

// run executes a transaction-control statement on the held connection.
func (t *Transaction) run(conn *connection.Connection, statement string) error {
	q, err := query.NewQuery(statement)
	if err != nil {
		return err
	}
	_, err = executeOn(conn, q, t.pool.cfg.RequestTimeout, t.pool.cfg.RowsAsRecords)
	return err
}

// closeLocked releases the held connection back to the pool exactly once.
func (t *Transaction) closeLocked() {
	conn := t.res.Value()
	conn.Release()
	checkin(t.res)
	t.res = nil
	t.open = false
}

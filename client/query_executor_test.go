package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/config"
	"github.com/tdsio/mssqlx/query"
	"github.com/tdsio/mssqlx/result"
	"github.com/tdsio/mssqlx/tds"
	"github.com/tdsio/mssqlx/tds/tdstest"
)

func newTestPool(t *testing.T, mutate func(*config.Config), fakes ...*tdstest.Conn) *ConnectionPool {
	t.Helper()
	cfg := config.Default()
	cfg.Server = "db.example.test"
	cfg.Pool.MaxSize = 1
	if mutate != nil {
		mutate(cfg)
	}
	pool, err := Connect(cfg, WithDialer(tdstest.Dialer(fakes...)))
	require.NoError(t, err)
	t.Cleanup(pool.Destroy)
	return pool
}

// finish emits request completion and settles the callback.
func finish(req *tds.Request, err error) {
	if err != nil {
		req.Events().Emit(tds.EventError, err)
		req.Complete(err)
		return
	}
	req.Events().Emit(tds.EventRequestCompleted)
	req.Complete(nil)
}

func TestQuerySingleResult(t *testing.T) {
	fake := tdstest.NewConn()
	fake.Script = func(entry string, req *tds.Request) {
		req.Events().Emit(tds.EventColumnMetadata, []tds.Column{{Name: "id", Type: tds.TypeInt}})
		req.Events().Emit(tds.EventRow, []any{int64(7)})
		req.Events().Emit(tds.EventStatementDone, int64(1), false)
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	out, err := pool.QueryString(context.Background(), "SELECT id FROM t")
	require.NoError(t, err)

	assert.True(t, out.Single(), "a single statement settles with one result, never a list")
	r, ok := out.Value().(*result.Result)
	require.True(t, ok)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, []any{int64(7)}, r.Rows[0])
	assert.Equal(t, int64(1), r.RowsAffected)
	assert.Equal(t, int32(1), fake.ExecSQLCalls)
}

func TestBatchResultsInStatementOrder(t *testing.T) {
	fake := tdstest.NewConn()
	fake.Script = func(entry string, req *tds.Request) {
		req.Events().Emit(tds.EventColumnMetadata, []tds.Column{{Name: "a"}})
		req.Events().Emit(tds.EventRow, []any{1})
		req.Events().Emit(tds.EventStatementDone, int64(1), true)
		req.Events().Emit(tds.EventColumnMetadata, []tds.Column{{Name: "b"}})
		req.Events().Emit(tds.EventRow, []any{2})
		req.Events().Emit(tds.EventRow, []any{3})
		req.Events().Emit(tds.EventStatementDone, int64(2), false)
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	out, err := pool.QueryString(context.Background(), "SELECT 1; SELECT 2")
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, "a", out.Results[0].Columns[0].Name)
	assert.Equal(t, "b", out.Results[1].Columns[0].Name)
	assert.Len(t, out.Results[1].Rows, 2)

	_, ok := out.Value().([]*result.Result)
	assert.True(t, ok, "a batch settles with the ordered list")
	assert.Equal(t, int32(1), fake.BatchCalls, "parameterless batch uses the raw-batch entry point")
}

func TestExecDispatchesToProcedureCall(t *testing.T) {
	fake := tdstest.NewConn()
	fake.Script = func(entry string, req *tds.Request) {
		assert.Equal(t, tdstest.EntryProc, entry)
		assert.Equal(t, "sp_x", req.SQL, "leading EXEC token is stripped")
		req.Events().Emit(tds.EventProcDone, int64(0), false, int64(0))
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	out, err := pool.QueryString(context.Background(), "EXEC sp_x")
	require.NoError(t, err)

	require.Len(t, out.Results, 1, "an empty procedure result is kept")
	rv, ok := out.Results[0].ReturnValue()
	assert.True(t, ok)
	assert.Equal(t, int64(0), rv)
}

func TestTrailingEmptyResultDroppedForNonExec(t *testing.T) {
	fake := tdstest.NewConn()
	fake.Script = func(entry string, req *tds.Request) {
		req.Events().Emit(tds.EventColumnMetadata, []tds.Column{{Name: "id"}})
		req.Events().Emit(tds.EventRow, []any{1})
		req.Events().Emit(tds.EventStatementDone, int64(1), true)
		// The trailing procedure completion carries no data.
		req.Events().Emit(tds.EventProcDone, int64(0), false, nil)
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	out, err := pool.QueryString(context.Background(), "SELECT id FROM t")
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "id", out.Results[0].Columns[0].Name)
}

func TestInProcBoundaryAbsorbedWhenEmpty(t *testing.T) {
	fake := tdstest.NewConn()
	fake.Script = func(entry string, req *tds.Request) {
		// Spurious boundary before any data: absorbed.
		req.Events().Emit(tds.EventInProcDone, int64(0), true)
		req.Events().Emit(tds.EventColumnMetadata, []tds.Column{{Name: "x"}})
		req.Events().Emit(tds.EventRow, []any{42})
		// Boundary after data: starts the next result.
		req.Events().Emit(tds.EventInProcDone, int64(1), true)
		req.Events().Emit(tds.EventProcDone, int64(0), false, int64(3))
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	out, err := pool.QueryString(context.Background(), "EXEC sp_multi")
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Len(t, out.Results[0].Rows, 1)
	rv, ok := out.Results[1].ReturnValue()
	assert.True(t, ok)
	assert.Equal(t, int64(3), rv)
}

func TestRecordDisplayMode(t *testing.T) {
	fake := tdstest.NewConn()
	fake.Script = func(entry string, req *tds.Request) {
		req.Events().Emit(tds.EventColumnMetadata, []tds.Column{
			{Name: "id", Type: tds.TypeInt},
			{Name: "name", Type: tds.TypeVarChar},
		})
		req.Events().Emit(tds.EventRow, []any{int64(1), "alice"})
		req.Events().Emit(tds.EventStatementDone, int64(1), false)
		finish(req, nil)
	}
	pool := newTestPool(t, func(cfg *config.Config) { cfg.RowsAsRecords = true }, fake)

	out, err := pool.QueryString(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)

	r := out.First()
	require.Len(t, r.Records, 1)
	assert.Nil(t, r.Rows, "rows stay homogeneous within one result")
	assert.Equal(t, map[string]any{"id": int64(1), "name": "alice"}, r.Records[0])
}

func TestParametersForwarded(t *testing.T) {
	fake := tdstest.NewConn()
	var got []tds.RequestParameter
	fake.Script = func(entry string, req *tds.Request) {
		got = req.Parameters
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	q, err := query.NewQuery("SELECT * FROM t WHERE id = @id")
	require.NoError(t, err)
	require.NoError(t, q.In("@id", 3223))
	require.NoError(t, q.Out("total", tds.TypeBigInt))

	_, err = pool.Query(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "id", got[0].Name)
	assert.Equal(t, tds.TypeSmallInt, got[0].Type)
	assert.False(t, got[0].Output)
	assert.Equal(t, "total", got[1].Name)
	assert.True(t, got[1].Output)
	assert.Equal(t, int32(1), fake.ExecSQLCalls, "parameterized statements use the generic entry point")
}

func TestProtocolErrorDoesNotPoisonPool(t *testing.T) {
	fake := tdstest.NewConn()
	fail := true
	fake.Script = func(entry string, req *tds.Request) {
		if fail {
			finish(req, errors.New("incorrect syntax near 'FORM'"))
			return
		}
		req.Events().Emit(tds.EventStatementDone, int64(0), false)
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	_, err := pool.QueryString(context.Background(), "SELECT * FORM t")
	require.Error(t, err)
	assert.True(t, mssqlx.IsProtocol(err))

	fail = false
	_, err = pool.QueryString(context.Background(), "SELECT * FROM t")
	assert.NoError(t, err, "the connection went back to the pool usable")
	assert.Equal(t, int32(1), fake.ConnectCalls, "same connection served both queries")
}

func TestTimeoutError(t *testing.T) {
	fake := tdstest.NewConn()
	fake.Script = func(entry string, req *tds.Request) {
		finish(req, &mssqlx.TimeoutError{Timeout: req.Timeout})
	}
	pool := newTestPool(t, nil, fake)

	_, err := pool.QueryString(context.Background(), "WAITFOR DELAY '00:01:00'")
	require.Error(t, err)
	assert.True(t, mssqlx.IsTimeout(err))
}

func TestQueryTimeoutOverride(t *testing.T) {
	fake := tdstest.NewConn()
	var got time.Duration
	fake.Script = func(entry string, req *tds.Request) {
		got = req.Timeout
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	q, err := query.NewQuery("SELECT 1")
	require.NoError(t, err)
	q.Timeout = 1234 * time.Millisecond
	_, err = pool.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1234*time.Millisecond, got)
}

func TestSubscriptionsDetachedAfterExecution(t *testing.T) {
	fake := tdstest.NewConn()
	var captured *tds.Request
	fake.Script = func(entry string, req *tds.Request) {
		captured = req
		finish(req, nil)
	}
	pool := newTestPool(t, nil, fake)

	_, err := pool.QueryString(context.Background(), "SELECT 1")
	require.NoError(t, err)

	require.NotNil(t, captured)
	for _, event := range []string{
		tds.EventError, tds.EventColumnMetadata, tds.EventRow,
		tds.EventStatementDone, tds.EventInProcDone, tds.EventProcDone,
		tds.EventRequestCompleted,
	} {
		assert.Equal(t, 0, captured.Events().ListenerCount(event), event)
	}
}

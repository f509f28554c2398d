package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/config"
	"github.com/tdsio/mssqlx/connection"
	"github.com/tdsio/mssqlx/tds"
	"github.com/tdsio/mssqlx/tds/tdstest"
)

func TestConnectValidatesConfig(t *testing.T) {
	cfg := config.Default()
	_, err := Connect(cfg, WithDialer(tdstest.Dialer(tdstest.NewConn())))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server is required")
}

func TestConnectRequiresDialer(t *testing.T) {
	cfg := config.Default()
	cfg.Server = "db.example.test"
	_, err := Connect(cfg, WithDialer(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transport dialer")
}

func TestPing(t *testing.T) {
	fake := tdstest.NewConn()
	var sqls []string
	fake.Script = scriptRecorder(&sqls)
	pool := newTestPool(t, nil, fake)

	require.NoError(t, pool.Ping(context.Background()))
	assert.Equal(t, []string{"SELECT 1"}, sqls)
}

func TestHandshakeFailureSurfaces(t *testing.T) {
	fake := tdstest.NewConn()
	fake.ConnectErr = mssqlx.ErrConnection
	cfg := config.Default()
	cfg.Server = "db.example.test"
	cfg.Pool.MaxSize = 1
	pool, err := Connect(cfg, WithDialer(tdstest.Dialer(fake)))
	require.NoError(t, err, "the pool itself builds lazily")
	defer pool.Destroy()

	_, err = pool.QueryString(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, mssqlx.ErrConnection)
}

func TestDeadConnectionReplaced(t *testing.T) {
	first := tdstest.NewConn()
	second := tdstest.NewConn()
	pool := newTestPool(t, nil, first, second)

	require.NoError(t, pool.Ping(context.Background()))
	assert.Equal(t, int32(1), first.ExecSQLCalls)

	// The server drops the wire while the connection sits in the pool.
	first.Close()

	require.NoError(t, pool.Ping(context.Background()))
	assert.Equal(t, int32(1), second.ExecSQLCalls, "a fresh connection served the second query")
	assert.Equal(t, int32(1), second.ConnectCalls)
}

func TestValidateHookRejectsConnections(t *testing.T) {
	first := tdstest.NewConn()
	second := tdstest.NewConn()
	cfg := config.Default()
	cfg.Server = "db.example.test"
	cfg.Pool.MaxSize = 1

	rejected := 0
	pool, err := Connect(cfg,
		WithDialer(tdstest.Dialer(first, second)),
		WithValidate(func(conn *connection.Connection) bool {
			if conn.Transport() == tds.Conn(first) {
				rejected++
				return false
			}
			return true
		}),
	)
	require.NoError(t, err)
	defer pool.Destroy()

	require.NoError(t, pool.Ping(context.Background()))
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int32(0), first.ExecSQLCalls)
	assert.Equal(t, int32(1), second.ExecSQLCalls)
	assert.Equal(t, int32(1), first.CloseCalls, "rejected connections are destroyed")
}

func TestStat(t *testing.T) {
	fake := tdstest.NewConn()
	pool := newTestPool(t, nil, fake)

	require.NoError(t, pool.Ping(context.Background()))
	stat := pool.Stat()
	assert.Equal(t, int32(1), stat.TotalResources())
	assert.Equal(t, int32(1), stat.IdleResources())
}

// Package tdstest provides a scriptable in-memory transport for tests.
package tdstest

import (
	"sync"
	"sync/atomic"

	"github.com/tdsio/mssqlx/config"
	"github.com/tdsio/mssqlx/events"
	"github.com/tdsio/mssqlx/tds"
)

// Conn is a fake transport handle. Scripts decide what each execution
// entry point emits; counters record how the session layer drove it.
type Conn struct {
	// ConnectErr, when set, fails the handshake.
	ConnectErr error

	// ConnectGate, when non-nil, holds the handshake until closed. Used to
	// keep a connection in the Connecting state while callers pile up.
	ConnectGate chan struct{}

	// Script runs for every execution entry point. A nil script completes
	// the request immediately with no result events.
	Script func(entry string, req *tds.Request)

	// BulkScript runs for BulkLoad. A nil script completes with zero rows.
	BulkScript func(b *tds.BulkLoad)

	// Counters.
	ConnectCalls int32
	CloseCalls   int32
	ExecSQLCalls int32
	BatchCalls   int32
	ProcCalls    int32
	BulkCalls    int32

	emitter *events.Emitter

	mu       sync.Mutex
	closed   bool
	loggedIn bool
}

// Entry point names recorded by Script.
const (
	EntrySQL   = "execSql"
	EntryBatch = "execBatch"
	EntryProc  = "callProcedure"
)

// NewConn creates a fake handle that connects successfully and completes
// every request without emitting result events.
func NewConn() *Conn {
	return &Conn{emitter: events.NewEmitter()}
}

// Dialer returns a tds.Dialer handing out the conns in order, reusing the
// last one once exhausted.
func Dialer(conns ...*Conn) tds.Dialer {
	var next int32
	return func(cfg *config.Config) (tds.Conn, error) {
		n := atomic.AddInt32(&next, 1) - 1
		if int(n) >= len(conns) {
			n = int32(len(conns) - 1)
		}
		return conns[n], nil
	}
}

// Events returns the per-connection event emitter.
func (c *Conn) Events() *events.Emitter {
	return c.emitter
}

// Connect runs the fake handshake. With a gate configured the outcome is
// delivered asynchronously once the gate closes.
func (c *Conn) Connect() {
	atomic.AddInt32(&c.ConnectCalls, 1)
	if c.ConnectGate != nil {
		go func() {
			<-c.ConnectGate
			c.finishConnect()
		}()
		return
	}
	c.finishConnect()
}

func (c *Conn) finishConnect() {
	if c.ConnectErr != nil {
		c.emitter.Emit(tds.EventConnect, c.ConnectErr)
		return
	}
	c.mu.Lock()
	c.loggedIn = true
	c.closed = false
	c.mu.Unlock()
	c.emitter.Emit(tds.EventConnect, nil)
}

// Close tears the fake down and emits end.
func (c *Conn) Close() {
	atomic.AddInt32(&c.CloseCalls, 1)
	c.mu.Lock()
	c.closed = true
	c.loggedIn = false
	c.mu.Unlock()
	c.emitter.Emit(tds.EventEnd)
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LoggedIn reports whether the fake handshake succeeded.
func (c *Conn) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// ExecSQL runs the script for the parameterized-statement entry point.
func (c *Conn) ExecSQL(req *tds.Request) {
	atomic.AddInt32(&c.ExecSQLCalls, 1)
	c.run(EntrySQL, req)
}

// ExecBatch runs the script for the raw-batch entry point.
func (c *Conn) ExecBatch(req *tds.Request) {
	atomic.AddInt32(&c.BatchCalls, 1)
	c.run(EntryBatch, req)
}

// CallProcedure runs the script for the procedure-call entry point.
func (c *Conn) CallProcedure(req *tds.Request) {
	atomic.AddInt32(&c.ProcCalls, 1)
	c.run(EntryProc, req)
}

// BulkLoad runs the bulk script.
func (c *Conn) BulkLoad(b *tds.BulkLoad) {
	atomic.AddInt32(&c.BulkCalls, 1)
	if c.BulkScript != nil {
		c.BulkScript(b)
		return
	}
	b.Complete(0, nil)
}

func (c *Conn) run(entry string, req *tds.Request) {
	if c.Script != nil {
		c.Script(entry, req)
		return
	}
	req.Events().Emit(tds.EventRequestCompleted)
	req.Complete(nil)
}

var _ tds.Conn = (*Conn)(nil)

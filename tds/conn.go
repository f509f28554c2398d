package tds

import (
	"github.com/tdsio/mssqlx/config"
	"github.com/tdsio/mssqlx/events"
)

// Per-connection events emitted by the transport handle.
const (
	// EventConnect carries an optional (error); nil means the handshake
	// succeeded and the handle is logged in.
	EventConnect = "connect"
	// EventEnd fires once when the handle has fully closed.
	EventEnd = "end"
	// EventDebug and EventInfo carry (string) diagnostic messages.
	EventDebug = "debug"
	EventInfo  = "info"
)

// Conn is the transport handle for one physical connection. A handle is
// exclusively owned by a single Connection and is never shared.
type Conn interface {
	// Events returns the per-connection event emitter
	// (connect, error, end, debug, info).
	Events() *events.Emitter

	// Connect starts the handshake. The outcome arrives as a connect
	// event carrying a nil or non-nil error.
	Connect()

	// Close tears the handle down; completion arrives as an end event.
	Close()

	// Closed reports whether the handle has been torn down.
	Closed() bool

	// LoggedIn reports whether the handshake completed successfully.
	LoggedIn() bool

	// ExecSQL executes a parameterized statement.
	ExecSQL(req *Request)

	// ExecBatch executes a raw batch without parameters.
	ExecBatch(req *Request)

	// CallProcedure invokes a stored procedure.
	CallProcedure(req *Request)

	// BulkLoad runs an accumulated bulk insert.
	BulkLoad(b *BulkLoad)
}

// Dialer creates a new transport handle for the given configuration. The
// handle is not yet connected.
type Dialer func(cfg *config.Config) (Conn, error)

// BulkColumn declares one target column of a bulk load.
type BulkColumn struct {
	Name     string
	Type     Type
	Length   int
	Nullable bool
}

// BulkLoad is the column/row accumulation contract handed to the
// transport's bulk-insert primitive. Wire framing is the transport's.
type BulkLoad struct {
	// Table is the target table name.
	Table string

	// Columns in declaration order.
	Columns []BulkColumn

	// Rows are positional value slices aligned with Columns.
	Rows [][]any

	// Done receives the inserted row count or the failure.
	Done func(rowCount int64, err error)
}

// Complete settles the bulk load's completion callback.
func (b *BulkLoad) Complete(rowCount int64, err error) {
	if b.Done != nil {
		b.Done(rowCount, err)
	}
}

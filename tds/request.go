package tds

import (
	"sync"
	"time"

	"github.com/tdsio/mssqlx/events"
)

// Per-request events emitted by the transport while a request executes.
const (
	// EventError carries (error).
	EventError = "error"
	// EventColumnMetadata carries ([]Column).
	EventColumnMetadata = "columnMetadata"
	// EventRow carries ([]any), positionally aligned with the current columns.
	EventRow = "row"
	// EventStatementDone carries (rowCount int64, more bool); a statement
	// boundary inside a batch.
	EventStatementDone = "statementDone"
	// EventInProcDone carries (rowCount int64, more bool); a boundary between
	// statements inside a stored procedure.
	EventInProcDone = "inProcDone"
	// EventProcDone carries (rowCount int64, more bool, returnValue any);
	// completion of a procedure call.
	EventProcDone = "procDone"
	// EventRequestCompleted carries no arguments; the request is finished.
	EventRequestCompleted = "requestCompleted"
)

// RequestParameter is one parameter attached to a request.
type RequestParameter struct {
	Name   string
	Type   Type
	Value  any
	Output bool
}

// Request binds one statement to a completion callback. The transport
// emits per-request events on Events while executing and settles the
// callback through Complete exactly once.
type Request struct {
	// SQL is the statement text to execute.
	SQL string

	// Timeout bounds execution; zero means no request timeout.
	Timeout time.Duration

	// Parameters in the order they were added.
	Parameters []RequestParameter

	events *events.Emitter

	mu      sync.Mutex
	done    func(err error)
	settled bool
}

// NewRequest creates a request from statement text and a completion
// callback.
func NewRequest(sql string, done func(err error)) *Request {
	return &Request{
		SQL:    sql,
		events: events.NewEmitter(),
		done:   done,
	}
}

// Events returns the per-request event emitter.
func (r *Request) Events() *events.Emitter {
	return r.events
}

// SetTimeout configures the request timeout.
func (r *Request) SetTimeout(d time.Duration) {
	r.Timeout = d
}

// AddParameter adds an input parameter.
func (r *Request) AddParameter(name string, t Type, value any) {
	r.Parameters = append(r.Parameters, RequestParameter{Name: name, Type: t, Value: value})
}

// AddOutputParameter adds an output parameter.
func (r *Request) AddOutputParameter(name string, t Type) {
	r.Parameters = append(r.Parameters, RequestParameter{Name: name, Type: t, Output: true})
}

// Complete settles the request's completion callback. Later calls are
// ignored; the transport may report an error after events already fired.
func (r *Request) Complete(err error) {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return
	}
	r.settled = true
	done := r.done
	r.mu.Unlock()

	if done != nil {
		done(err)
	}
}

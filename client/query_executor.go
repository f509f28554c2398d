package client

import (
	"errors"
	"sync"
	"time"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/connection"
	"github.com/tdsio/mssqlx/events"
	"github.com/tdsio/mssqlx/query"
	"github.com/tdsio/mssqlx/result"
	"github.com/tdsio/mssqlx/tds"
)

// executeOn runs one query against an already-reserved connection: it
// builds the transport request, subscribes the aggregator through a
// tracker, dispatches by statement mode, and waits for settlement. All
// subscriptions are detached before the outcome is returned, on success
// and on failure.
func executeOn(conn *connection.Connection, q *query.Query, timeout time.Duration, asRecords bool) (*result.Outcome, error) {
	transport := conn.Transport()
	if transport == nil || transport.Closed() {
		return nil, errors.New("mssqlx: connection has no live transport")
	}

	settled := make(chan error, 1)
	var once sync.Once
	settle := func(err error) {
		once.Do(func() { settled <- err })
	}

	req := tds.NewRequest(q.Statement(), settle)
	if q.Timeout > 0 {
		timeout = q.Timeout
	}
	if timeout > 0 {
		req.SetTimeout(timeout)
	}
	for _, p := range q.Parameters() {
		if p.Output {
			req.AddOutputParameter(p.Name, p.Type)
		} else {
			req.AddParameter(p.Name, p.Type, p.Value)
		}
	}

	agg := newResultAggregator(asRecords, q.Mode())
	log := conn.Log()

	tracker := events.NewTracker()
	emitters := []*events.Emitter{req.Events()}
	_ = tracker.RegisterOn(emitters, tds.EventError, func(args ...any) {
		err := errorArg(args)
		log.Error("request failed", "sql", q.Statement(), "error", err)
		settle(err)
	})
	_ = tracker.RegisterOn(emitters, tds.EventColumnMetadata, agg.onColumnMetadata)
	_ = tracker.RegisterOn(emitters, tds.EventRow, agg.onRow)
	_ = tracker.RegisterOn(emitters, tds.EventStatementDone, agg.onStatementDone)
	_ = tracker.RegisterOn(emitters, tds.EventInProcDone, agg.onInProcDone)
	_ = tracker.RegisterOn(emitters, tds.EventProcDone, agg.onProcDone)
	_ = tracker.RegisterOn(emitters, tds.EventRequestCompleted, func(args ...any) {
		settle(nil)
	})

	switch {
	case q.Mode() == query.ModeExec:
		transport.CallProcedure(req)
	case q.Mode() == query.ModeBatch && len(q.Parameters()) == 0:
		transport.ExecBatch(req)
	default:
		transport.ExecSQL(req)
	}

	err := <-settled
	tracker.RemoveFrom(req.Events(), "", true)

	if err != nil {
		return nil, executionError(err, req.Timeout)
	}
	return agg.outcome(), nil
}

// executionError normalizes transport failures into the error taxonomy.
// Timeouts keep their identity; everything else becomes a ProtocolError.
func executionError(err error, timeout time.Duration) error {
	var pe *mssqlx.ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	if mssqlx.IsTimeout(err) {
		var te *mssqlx.TimeoutError
		if errors.As(err, &te) {
			return err
		}
		return &mssqlx.TimeoutError{Timeout: timeout}
	}
	return &mssqlx.ProtocolError{Message: err.Error(), Cause: err}
}

func errorArg(args []any) error {
	if len(args) > 0 {
		if err, ok := args[0].(error); ok {
			return err
		}
	}
	return mssqlx.ErrConnection
}

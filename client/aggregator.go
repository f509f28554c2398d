package client

import (
	"github.com/tdsio/mssqlx/query"
	"github.com/tdsio/mssqlx/result"
	"github.com/tdsio/mssqlx/tds"
)

// resultAggregator converts a request's event stream into ordered results.
// It grows a result list and always mutates the last entry; statement
// boundaries announced with "more" start the next one.
type resultAggregator struct {
	asRecords bool
	exec      bool
	results   []*result.Result
}

func newResultAggregator(asRecords bool, mode query.Mode) *resultAggregator {
	return &resultAggregator{
		asRecords: asRecords,
		exec:      mode == query.ModeExec,
		results:   []*result.Result{result.New()},
	}
}

func (a *resultAggregator) current() *result.Result {
	return a.results[len(a.results)-1]
}

func (a *resultAggregator) push() {
	a.results = append(a.results, result.New())
}

func (a *resultAggregator) outcome() *result.Outcome {
	return &result.Outcome{Results: a.results}
}

// onColumnMetadata populates the current result's column list: merged by
// name in record display mode, replaced positionally in array mode.
func (a *resultAggregator) onColumnMetadata(args ...any) {
	if len(args) == 0 {
		return
	}
	cols, ok := args[0].([]tds.Column)
	if !ok {
		return
	}
	if a.asRecords {
		a.current().MergeColumns(cols)
	} else {
		a.current().ReplaceColumns(cols)
	}
}

// onRow appends a row in the same display shape as the columns.
func (a *resultAggregator) onRow(args ...any) {
	if len(args) == 0 {
		return
	}
	values, ok := args[0].([]any)
	if !ok {
		return
	}
	cur := a.current()
	if !a.asRecords {
		cur.AddRow(values)
		return
	}
	rec := make(map[string]any, len(cur.Columns))
	for i, col := range cur.Columns {
		if i < len(values) {
			rec[col.Name] = values[i]
		}
	}
	cur.AddRecord(rec)
}

// onStatementDone handles a statement boundary inside a batch.
func (a *resultAggregator) onStatementDone(args ...any) {
	rowCount, more := doneArgs(args)
	a.current().RowsAffected = rowCount
	if more {
		a.push()
	}
}

// onInProcDone handles a boundary between statements inside a procedure.
// Boundary tokens carrying no data are absorbed: a new result starts only
// once the current one accumulated something.
func (a *resultAggregator) onInProcDone(args ...any) {
	rowCount, _ := doneArgs(args)
	cur := a.current()
	_, hasReturn := cur.ReturnValue()
	if !hasReturn && len(cur.Columns) == 0 && cur.RowCount() == 0 {
		return
	}
	cur.RowsAffected = rowCount
	a.push()
}

// onProcDone handles procedure completion: the return value lands on the
// current result. A trailing result with no columns and no rows is noise
// for anything but a procedure call and is dropped; a genuinely empty
// procedure result is kept.
func (a *resultAggregator) onProcDone(args ...any) {
	rowCount, more := doneArgs(args)
	cur := a.current()
	cur.RowsAffected = rowCount
	if len(args) > 2 {
		cur.SetReturnValue(args[2])
	}
	switch {
	case more:
		a.push()
	case !a.exec && len(cur.Columns) == 0 && cur.RowCount() == 0:
		a.results = a.results[:len(a.results)-1]
	}
}

func doneArgs(args []any) (rowCount int64, more bool) {
	if len(args) > 0 {
		rowCount, _ = args[0].(int64)
	}
	if len(args) > 1 {
		more, _ = args[1].(bool)
	}
	return rowCount, more
}

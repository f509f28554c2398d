// Package result models one statement's outcome: ordered column metadata,
// ordered rows, and an optional procedure return value.
package result

import "github.com/tdsio/mssqlx/tds"

// Result is the outcome of one statement. Rows are stored either
// positionally (Rows) or as name-keyed records (Records); the shape is
// chosen once per result set by the connection-wide display option and is
// homogeneous within a Result.
type Result struct {
	// Columns is the ordered column-metadata list.
	Columns []tds.Column

	// Rows holds positional row values (array display mode).
	Rows [][]any

	// Records holds name-keyed rows (record display mode).
	Records []map[string]any

	// RowsAffected is the row count reported at the statement boundary.
	RowsAffected int64

	returnValue any
	hasReturn   bool
}

// New creates an empty result.
func New() *Result {
	return &Result{}
}

// SetReturnValue assigns the procedure return value slot.
func (r *Result) SetReturnValue(v any) {
	r.returnValue = v
	r.hasReturn = true
}

// ReturnValue returns the procedure return value and whether one was set.
func (r *Result) ReturnValue() (any, bool) {
	return r.returnValue, r.hasReturn
}

// RowCount returns the number of accumulated rows in either display shape.
func (r *Result) RowCount() int {
	if r.Records != nil {
		return len(r.Records)
	}
	return len(r.Rows)
}

// Empty reports whether the result carries no columns, no rows, and no
// return value.
func (r *Result) Empty() bool {
	return len(r.Columns) == 0 && r.RowCount() == 0 && !r.hasReturn
}

// MergeColumns merges incoming metadata by name: same-named columns are
// replaced in place, new names appended. Used in record display mode.
func (r *Result) MergeColumns(cols []tds.Column) {
	for _, col := range cols {
		replaced := false
		for i := range r.Columns {
			if r.Columns[i].Name == col.Name {
				r.Columns[i] = col
				replaced = true
				break
			}
		}
		if !replaced {
			r.Columns = append(r.Columns, col)
		}
	}
}

// ReplaceColumns replaces the column list positionally. Used in array
// display mode.
func (r *Result) ReplaceColumns(cols []tds.Column) {
	r.Columns = append(r.Columns[:0:0], cols...)
}

// AddRow appends one positional row.
func (r *Result) AddRow(values []any) {
	r.Rows = append(r.Rows, values)
}

// AddRecord appends one name-keyed row.
func (r *Result) AddRecord(rec map[string]any) {
	r.Records = append(r.Records, rec)
}

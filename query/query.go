// Package query provides the statement and parameter model: builder
// surface, statement-mode classification, and runtime type inference.
package query

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/tds"
)

// Mode classifies a statement's shape.
type Mode int

const (
	// ModeQuery is a single plain statement.
	ModeQuery Mode = iota
	// ModeExec is a single stored-procedure call.
	ModeExec
	// ModeBatch is a multi-statement batch.
	ModeBatch
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeExec:
		return "EXEC"
	case ModeBatch:
		return "BATCH"
	default:
		return "QUERY"
	}
}

// Parameter is one named statement parameter. Names are unique per query,
// case-sensitive, stored without the leading @ marker.
type Parameter struct {
	Name   string
	Type   tds.Type
	Value  any
	Output bool
}

// Query is a mutable statement plus its ordered parameters. It stays
// mutable until executed and can be reused after Clear.
type Query struct {
	text   string
	mode   Mode
	params []*Parameter
	index  map[string]int

	// Timeout overrides the configured request timeout when non-zero.
	Timeout time.Duration
}

// New creates an empty query.
func New() *Query {
	return &Query{index: make(map[string]int)}
}

// NewQuery creates a query from statement text.
func NewQuery(statement string) (*Query, error) {
	q := New()
	if err := q.SQL(statement); err != nil {
		return nil, err
	}
	return q, nil
}

var (
	execPrefixRe = regexp.MustCompile(`(?i)^(exec|execute)(\s+|$)`)
	batchSepRe   = regexp.MustCompile(`(?im)^[ \t]*go[ \t]*\r?$`)
)

// SQL sets the statement text and classifies its mode. A matched leading
// EXEC/EXECUTE token is stripped from the stored text.
func (q *Query) SQL(statement string) error {
	if strings.TrimSpace(statement) == "" {
		return mssqlx.Validationf("query.SQL", "statement must be a non-empty string")
	}

	trimmed := strings.TrimFunc(statement, func(r rune) bool {
		return unicode.IsSpace(r) || r == ';'
	})

	if loc := execPrefixRe.FindStringIndex(trimmed); loc != nil {
		rest := strings.TrimSpace(trimmed[loc[1]:])
		switch {
		case rest == "":
			// A bare EXEC token is not a call; leave it a plain statement.
		case multiStatement(rest):
			q.text = statement
			q.mode = ModeBatch
			return nil
		default:
			q.text = rest
			q.mode = ModeExec
			return nil
		}
	}

	q.text = statement
	if multiStatement(trimmed) {
		q.mode = ModeBatch
	} else {
		q.mode = ModeQuery
	}
	return nil
}

// multiStatement reports whether the text holds more than one statement:
// a semicolon with a non-blank remainder, or a GO separator line.
func multiStatement(s string) bool {
	if i := strings.IndexByte(s, ';'); i >= 0 && strings.TrimSpace(s[i+1:]) != "" {
		return true
	}
	return batchSepRe.MatchString(s)
}

// Statement returns the stored statement text.
func (q *Query) Statement() string {
	return q.text
}

// Mode returns the statement-mode classification.
func (q *Query) Mode() Mode {
	return q.mode
}

// Parameters returns the parameters in insertion order.
func (q *Query) Parameters() []*Parameter {
	return q.params
}

// In adds an input parameter with its type inferred from the value.
func (q *Query) In(name string, value any) error {
	t, err := Infer(value)
	if err != nil {
		return err
	}
	return q.add(name, t, value, false)
}

// InType adds an input parameter with an explicit type.
func (q *Query) InType(name string, t tds.Type, value any) error {
	if t == tds.TypeNone {
		return mssqlx.Validationf("query.InType", "parameter %q: type is required", name)
	}
	return q.add(name, t, value, false)
}

// Out adds an output parameter. The type is mandatory.
func (q *Query) Out(name string, t tds.Type) error {
	if t == tds.TypeNone {
		return mssqlx.Validationf("query.Out", "output parameter %q: type is required", name)
	}
	return q.add(name, t, nil, true)
}

func (q *Query) add(name string, t tds.Type, value any, output bool) error {
	name = strings.TrimPrefix(name, "@")
	if name == "" {
		return mssqlx.Validationf("query.add", "parameter name must be a non-empty string")
	}
	if q.index == nil {
		q.index = make(map[string]int)
	}
	if _, exists := q.index[name]; exists {
		return mssqlx.Validationf("query.add", "duplicate parameter name %q", name)
	}
	q.index[name] = len(q.params)
	q.params = append(q.params, &Parameter{Name: name, Type: t, Value: value, Output: output})
	return nil
}

// Remove deletes a parameter and reports whether it existed.
func (q *Query) Remove(name string) bool {
	name = strings.TrimPrefix(name, "@")
	i, ok := q.index[name]
	if !ok {
		return false
	}
	q.params = append(q.params[:i:i], q.params[i+1:]...)
	delete(q.index, name)
	for n, j := range q.index {
		if j > i {
			q.index[n] = j - 1
		}
	}
	return true
}

// Clear resets statement text, mode, and parameters.
func (q *Query) Clear() {
	q.text = ""
	q.mode = ModeQuery
	q.params = nil
	q.index = make(map[string]int)
}

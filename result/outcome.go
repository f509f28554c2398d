package result

// Outcome is what one execution settles with: the ordered results of the
// statements that ran. It replaces the source pattern of resolving with
// either a bare value or an array.
type Outcome struct {
	// Results in statement execution order.
	Results []*Result
}

// Single reports whether exactly one result was produced.
func (o *Outcome) Single() bool {
	return o != nil && len(o.Results) == 1
}

// First returns the first result, or nil when none were produced.
func (o *Outcome) First() *Result {
	if o == nil || len(o.Results) == 0 {
		return nil
	}
	return o.Results[0]
}

// Value returns the settle value: the single *Result when exactly one was
// produced, the ordered []*Result otherwise, nil when none.
func (o *Outcome) Value() any {
	switch {
	case o == nil || len(o.Results) == 0:
		return nil
	case len(o.Results) == 1:
		return o.Results[0]
	default:
		return o.Results
	}
}

// Flatten collapses arbitrarily nested mixes of *Result, []*Result, []any,
// and nils into the settle shape: nil when no result is present anywhere,
// the unwrapped *Result when exactly one is, and otherwise an ordered
// []*Result with nils filtered, preserving input order.
func Flatten(items ...any) any {
	flat := flattenInto(nil, items)
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return flat
	}
}

func flattenInto(dst []*Result, items []any) []*Result {
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case *Result:
			if v != nil {
				dst = append(dst, v)
			}
		case []*Result:
			for _, r := range v {
				if r != nil {
					dst = append(dst, r)
				}
			}
		case []any:
			dst = flattenInto(dst, v)
		}
	}
	return dst
}

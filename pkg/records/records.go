// Package records holds the in-memory table representation shared by the
// parser, transformers, probe and statement generator.
//
// A Table is read-only once loaded (or once produced by a transformer):
// components receive it explicitly and never mutate a table they did not
// create.
package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one row keyed by sanitized column name. Values are one of
// nil, string, int64, float64 or bool.
type Record map[string]any

// Kind is the column-level value kind, mirroring dataframe dtypes.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Table is an ordered set of columns with one Kind per column.
type Table struct {
	Columns []string
	Kinds   []Kind
	Rows    []Record
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table has column name.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Kind returns the kind of column name (KindString if unknown).
func (t *Table) Kind(name string) Kind {
	i := t.Index(name)
	if i < 0 || i >= len(t.Kinds) {
		return KindString
	}
	return t.Kinds[i]
}

// Values returns every value of column name in row order.
func (t *Table) Values(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// RecomputeKinds re-derives Kinds from the current cell values.
func (t *Table) RecomputeKinds() {
	kinds := make([]Kind, len(t.Columns))
	for i, c := range t.Columns {
		kinds[i] = DetectKind(t.Values(c))
	}
	t.Kinds = kinds
}

// DetectKind derives a column kind from typed values:
//   - all integers and no nulls => KindInt
//   - all numeric (or no non-null value at all) => KindFloat
//   - all booleans and no nulls => KindBool
//   - anything else => KindString
//
// Integers with nulls become KindFloat, as a dataframe would widen them.
func DetectKind(values []any) Kind {
	var nulls, seen int
	allInt, allNum, allBool := true, true, true

	for _, v := range values {
		if v == nil {
			nulls++
			continue
		}
		seen++
		switch v.(type) {
		case int64, int:
			allBool = false
		case float64, float32:
			allInt = false
			allBool = false
		case bool:
			allInt = false
			allNum = false
		default:
			allInt = false
			allNum = false
			allBool = false
		}
	}

	switch {
	case seen == 0:
		return KindFloat
	case allInt && nulls == 0:
		return KindInt
	case allNum:
		return KindFloat
	case allBool && nulls == 0:
		return KindBool
	default:
		return KindString
	}
}

// Stringify renders a cell the way a dataframe string coercion would:
// nil => "nan", floats without trailing zeros, bools as True/False.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "nan"
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

package csv

import (
	"strconv"

	"catalogetl/pkg/records"
)

// parseColumn decides a column's Kind from all of its raw cells and returns
// the typed values.
//
// The rules follow dataframe dtype inference:
//   - every non-null cell an integer and no nulls => int64 values
//   - every non-null cell a number (or the column entirely null) => float64
//   - every cell a True/False literal and no nulls => bool
//   - otherwise the original strings are kept
func parseColumn(cells []*string) (records.Kind, []any) {
	var nulls, seen int
	allInt, allFloat, allBool := true, true, true

	for _, c := range cells {
		if c == nil {
			nulls++
			continue
		}
		seen++
		v := *c
		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBoolLiteral(v); !ok {
				allBool = false
			}
		}
	}

	out := make([]any, len(cells))

	switch {
	case seen == 0:
		return records.KindFloat, out

	case allInt && nulls == 0:
		for i, c := range cells {
			n, _ := strconv.ParseInt(*c, 10, 64)
			out[i] = n
		}
		return records.KindInt, out

	case allFloat:
		for i, c := range cells {
			if c == nil {
				continue
			}
			f, _ := strconv.ParseFloat(*c, 64)
			out[i] = f
		}
		return records.KindFloat, out

	case allBool && nulls == 0:
		for i, c := range cells {
			b, _ := parseBoolLiteral(*c)
			out[i] = b
		}
		return records.KindBool, out
	}

	for i, c := range cells {
		if c != nil {
			out[i] = *c
		}
	}
	return records.KindString, out
}

// parseBoolLiteral accepts the strict True/False spellings only; "yes",
// "1" and friends stay text or numbers.
func parseBoolLiteral(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	default:
		return false, false
	}
}

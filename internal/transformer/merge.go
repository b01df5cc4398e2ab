package transformer

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"catalogetl/pkg/records"
)

// ErrMissingNaturalKey is returned when the table has no natural key column.
var ErrMissingNaturalKey = errors.New("natural key column not found")

// SizeJoiner joins the merged set of size values for one product.
const SizeJoiner = "; "

// MergeOptions configures Merge.
type MergeOptions struct {
	// NaturalKey is the column identifying one product.
	NaturalKey string

	// SizeColumns are merged by set union across rows sharing a key.
	// Nil selects DetectSizeColumns. Names absent from the table are ignored.
	SizeColumns []string

	// CommaColumns is passed to NormalizeColumns.
	CommaColumns []string
}

// MergeResult is the canonical product table and what was dropped on the way.
type MergeResult struct {
	Table       *records.Table
	SizeColumns []string
	// InvalidKeys counts rows skipped for a null/blank/nan/none key.
	InvalidKeys int
	// Duplicates counts rows folded into an earlier row with the same key.
	Duplicates int
}

// DetectSizeColumns returns every column (other than key) whose name
// contains "size", in column order.
func DetectSizeColumns(t *records.Table, key string) []string {
	var out []string
	for _, c := range t.Columns {
		if c != key && strings.Contains(c, "size") {
			out = append(out, c)
		}
	}
	return out
}

// NaturalKey returns the grouping form of a key cell and whether it is
// usable. Null, blank, "nan" and "none" (any case) keys are not.
func NaturalKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	k := strings.TrimSpace(records.Stringify(v))
	if isBlankValue(k) {
		return "", false
	}
	return k, true
}

// Merge collapses raw rows into one row per natural key.
//
//  1. Rows are grouped by key; invalid keys are dropped. For each size
//     column the distinct non-empty trimmed values of the group are sorted
//     and joined with SizeJoiner.
//  2. Size columns are dropped and the first row per key is kept.
//  3. The merged size values are appended as trailing columns.
//  4. Every text column except the key is normalized (NormalizeColumns).
//
// Row order follows the first occurrence of each key. The output depends
// only on the input table, so Fingerprint is stable across runs.
func Merge(t *records.Table, opt MergeOptions) (MergeResult, error) {
	key := opt.NaturalKey
	if !t.Has(key) {
		return MergeResult{}, fmt.Errorf("merge: %w: %q", ErrMissingNaturalKey, key)
	}

	sizeCols := opt.SizeColumns
	if sizeCols == nil {
		sizeCols = DetectSizeColumns(t, key)
	} else {
		sizeCols = slices.DeleteFunc(slices.Clone(sizeCols), func(c string) bool {
			return c == key || !t.Has(c)
		})
	}
	isSize := toSet(sizeCols)

	var res MergeResult
	res.SizeColumns = sizeCols

	type group struct {
		first records.Record
		sizes []map[string]struct{}
	}
	groups := make(map[string]*group)
	var order []string

	for _, row := range t.Rows {
		k, ok := NaturalKey(row[key])
		if !ok {
			res.InvalidKeys++
			continue
		}
		g, seen := groups[k]
		if !seen {
			g = &group{first: row, sizes: make([]map[string]struct{}, len(sizeCols))}
			for i := range g.sizes {
				g.sizes[i] = make(map[string]struct{})
			}
			groups[k] = g
			order = append(order, k)
		} else {
			res.Duplicates++
		}
		for i, c := range sizeCols {
			v := row[c]
			if v == nil {
				continue
			}
			if s := strings.TrimSpace(records.Stringify(v)); s != "" {
				g.sizes[i][s] = struct{}{}
			}
		}
	}

	columns := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if _, ok := isSize[c]; !ok {
			columns = append(columns, c)
		}
	}
	columns = append(columns, sizeCols...)

	merged := &records.Table{Columns: columns, Rows: make([]records.Record, 0, len(order))}
	for _, k := range order {
		g := groups[k]
		row := make(records.Record, len(columns))
		for _, c := range columns[:len(columns)-len(sizeCols)] {
			row[c] = g.first[c]
		}
		for i, c := range sizeCols {
			if len(g.sizes[i]) == 0 {
				row[c] = nil
				continue
			}
			vals := slices.Sorted(maps.Keys(g.sizes[i]))
			row[c] = strings.Join(vals, SizeJoiner)
		}
		merged.Rows = append(merged.Rows, row)
	}
	merged.RecomputeKinds()

	res.Table = NormalizeColumns(merged, NormalizeOptions{
		CommaColumns: opt.CommaColumns,
		Skip:         []string{key},
	})
	return res, nil
}

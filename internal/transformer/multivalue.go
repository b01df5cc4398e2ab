// Package transformer reshapes loaded tables: multi-value normalization,
// deduplication by natural key, and table fingerprints.
package transformer

import (
	"maps"
	"regexp"
	"strings"

	"catalogetl/pkg/records"
)

// CanonicalSeparator joins the values of a normalized multi-value cell.
const CanonicalSeparator = " | "

// Delimiter selects how a source cell is split into values.
type Delimiter int

const (
	// Semicolon splits on ';' followed by optional whitespace.
	Semicolon Delimiter = iota
	// Comma splits on ',' followed by optional whitespace.
	Comma
)

var (
	semicolonRE = regexp.MustCompile(`;\s*`)
	commaRE     = regexp.MustCompile(`,\s*`)
)

// NormalizeCell rewrites one multi-value cell into canonical form.
//
// The cell is split on d, and every piece is split again on '|' so that an
// already normalized cell yields the same values. Pieces are trimmed;
// empty pieces and the literals "nan" / "none" (any case) are dropped, as
// are repeats of an earlier value. Survivors are joined with
// CanonicalSeparator.
//
// Non-string values are returned unchanged. A string with no surviving
// value becomes nil. NormalizeCell is idempotent.
//
// Edge cases:
//   - a literal '|' inside a value is treated as a separator.
func NormalizeCell(v any, d Delimiter) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	vals := SplitValues(s, d)
	if len(vals) == 0 {
		return nil
	}
	return strings.Join(vals, CanonicalSeparator)
}

// SplitValues returns the distinct cleaned values of a cell in first-seen
// order, using the rules of NormalizeCell.
func SplitValues(s string, d Delimiter) []string {
	re := semicolonRE
	if d == Comma {
		re = commaRE
	}

	var out []string
	seen := make(map[string]struct{})
	for _, piece := range re.Split(s, -1) {
		for _, v := range strings.Split(piece, "|") {
			v = strings.TrimSpace(v)
			if isBlankValue(v) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// CanonicalValues splits a normalized cell on '|' only, so delimiters kept
// inside a value (a ';' in a comma-split column) stay part of it. Values are
// trimmed, blanks dropped and repeats removed, in first-seen order.
func CanonicalValues(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range strings.Split(s, "|") {
		v = strings.TrimSpace(v)
		if isBlankValue(v) {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// isBlankValue reports the placeholders dropped from multi-value cells.
func isBlankValue(v string) bool {
	return v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "none")
}

// NormalizeOptions configures NormalizeColumns.
type NormalizeOptions struct {
	// CommaColumns are split on commas; every other column on semicolons.
	CommaColumns []string
	// Skip lists columns left untouched (for example the natural key).
	Skip []string
}

// NormalizeColumns returns a copy of t with every KindString column
// normalized by NormalizeCell. Kinds are recomputed on the copy.
func NormalizeColumns(t *records.Table, opt NormalizeOptions) *records.Table {
	comma := toSet(opt.CommaColumns)
	skip := toSet(opt.Skip)

	out := &records.Table{
		Columns: append([]string(nil), t.Columns...),
		Kinds:   append([]records.Kind(nil), t.Kinds...),
		Rows:    make([]records.Record, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = maps.Clone(row)
	}

	for i, col := range t.Columns {
		if t.Kinds[i] != records.KindString {
			continue
		}
		if _, ok := skip[col]; ok {
			continue
		}
		d := Semicolon
		if _, ok := comma[col]; ok {
			d = Comma
		}
		for _, row := range out.Rows {
			row[col] = NormalizeCell(row[col], d)
		}
	}

	out.RecomputeKinds()
	return out
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}

package probe

import (
	"fmt"
	"sort"
	"strings"

	"catalogetl/pkg/records"
)

// maxAttributes caps SuggestAttributes.
const maxAttributes = 12

// attributeRatio is the distinct/non-null ratio above which a column looks
// like free text or an identifier rather than a vocabulary.
const attributeRatio = 0.90

// ColumnStats is the uniqueness profile of one column.
type ColumnStats struct {
	Name     string
	Type     SQLType
	Rows     int
	NonNull  int
	Distinct int
}

// Ratio is Distinct/NonNull, 0 for an all-null column.
func (s ColumnStats) Ratio() float64 {
	if s.NonNull == 0 {
		return 0
	}
	return float64(s.Distinct) / float64(s.NonNull)
}

// Uniqueness profiles every column of t, in column order. Distinct values
// are compared by their string form.
func Uniqueness(t *records.Table) []ColumnStats {
	profiles := ProfileTable(t)
	out := make([]ColumnStats, len(t.Columns))
	for i, col := range t.Columns {
		s := ColumnStats{Name: col, Type: profiles[i].Type, Rows: t.Len()}
		seen := make(map[string]struct{})
		for _, row := range t.Rows {
			v := row[col]
			if v == nil {
				continue
			}
			s.NonNull++
			seen[records.Stringify(v)] = struct{}{}
		}
		s.Distinct = len(seen)
		out[i] = s
	}
	return out
}

// SuggestKey picks the natural key candidate: the column with the most
// distinct values, preferring columns without nulls, earliest column on
// ties. It returns "" when every column is empty.
func SuggestKey(stats []ColumnStats) string {
	best := -1
	better := func(a, b ColumnStats) bool {
		af, bf := a.NonNull == a.Rows, b.NonNull == b.Rows
		if af != bf {
			return af
		}
		return a.Distinct > b.Distinct
	}
	for i, s := range stats {
		if s.Distinct == 0 {
			continue
		}
		if best < 0 || better(s, stats[best]) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return stats[best].Name
}

// SuggestAttributes picks text columns that look like vocabularies: low to
// moderate uniqueness, not the key and not excluded. Lowest ratio first,
// column name on ties, at most maxAttributes.
func SuggestAttributes(stats []ColumnStats, key string, exclude []string) []string {
	skip := make(map[string]struct{}, len(exclude)+1)
	skip[key] = struct{}{}
	for _, e := range exclude {
		skip[e] = struct{}{}
	}

	var cands []ColumnStats
	for _, s := range stats {
		if _, ok := skip[s.Name]; ok {
			continue
		}
		if s.Distinct == 0 || s.Ratio() > attributeRatio {
			continue
		}
		if s.Type.Base != TypeVarchar && s.Type.Base != TypeText {
			continue
		}
		cands = append(cands, s)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Ratio() == cands[j].Ratio() {
			return cands[i].Name < cands[j].Name
		}
		return cands[i].Ratio() < cands[j].Ratio()
	})

	out := make([]string, 0, min(len(cands), maxAttributes))
	for _, c := range cands {
		out = append(out, c.Name)
		if len(out) == maxAttributes {
			break
		}
	}
	return out
}

// FormatUniquenessReport renders stats as a tab-separated table, lowest
// ratio first.
func FormatUniquenessReport(stats []ColumnStats) string {
	if len(stats) == 0 || stats[0].Rows == 0 {
		return "uniqueness: no rows"
	}

	rows := make([]ColumnStats, 0, len(stats))
	for _, s := range stats {
		if s.NonNull > 0 {
			rows = append(rows, s)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Ratio() == rows[j].Ratio() {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Ratio() < rows[j].Ratio()
	})

	var b strings.Builder
	fmt.Fprintf(&b, "uniqueness report:\trows=%d\n", stats[0].Rows)
	fmt.Fprintf(&b, "%-30s\t%-14s\t%-7s\t%-7s\tratio\n", "col", "type", "unique", "rows")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-30s\t%-14s\t%-7d\t%-7d\t%.1f%%\n", r.Name, r.Type, r.Distinct, r.NonNull, r.Ratio()*100)
	}
	return strings.TrimRight(b.String(), "\n")
}

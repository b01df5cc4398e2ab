package probe

import (
	"strings"

	"catalogetl/pkg/records"
)

// Classification partitions candidate attributes by relationship shape.
// Each slice keeps the candidate order.
type Classification struct {
	OneToOne   []string
	ManyToMany []string
	// Missing lists candidates with no column in the classified table.
	Missing []string
}

// IsManyToMany reports whether attr was classified many:many.
func (c Classification) IsManyToMany(attr string) bool {
	for _, a := range c.ManyToMany {
		if a == attr {
			return true
		}
	}
	return false
}

// Linked returns every classified attribute, one:one first.
func (c Classification) Linked() []string {
	out := make([]string, 0, len(c.OneToOne)+len(c.ManyToMany))
	out = append(out, c.OneToOne...)
	return append(out, c.ManyToMany...)
}

// ClassifyRelationships decides, per attribute, whether products relate to
// attribute values one:one or many:many.
//
// The decision is global for the attribute: it is many:many iff at least
// one non-null string cell of the normalized column contains sep. Columns
// without any such cell (including all-null or non-text columns) are
// one:one.
//
// Repeated candidates are classified once. Cost is a single scan per
// attribute that stops at the first multi-value cell.
func ClassifyRelationships(t *records.Table, attributes []string, sep string) Classification {
	var c Classification
	seen := make(map[string]struct{}, len(attributes))
	for _, attr := range attributes {
		if _, dup := seen[attr]; dup {
			continue
		}
		seen[attr] = struct{}{}
		if !t.Has(attr) {
			c.Missing = append(c.Missing, attr)
			continue
		}
		if hasMultiValue(t, attr, sep) {
			c.ManyToMany = append(c.ManyToMany, attr)
		} else {
			c.OneToOne = append(c.OneToOne, attr)
		}
	}
	return c
}

func hasMultiValue(t *records.Table, col, sep string) bool {
	for _, row := range t.Rows {
		if s, ok := row[col].(string); ok && strings.Contains(s, sep) {
			return true
		}
	}
	return false
}

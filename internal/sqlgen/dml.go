package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"catalogetl/internal/dialect"
	"catalogetl/internal/embedding"
	"catalogetl/internal/transformer"
	"catalogetl/pkg/records"
)

// dmlRun generates the data statements of one stream.
type dmlRun struct {
	g    *Generator
	p    Plan
	s    *Stream
	ctx  context.Context
	emit func(Statement) bool
	fail func(error) bool

	// unavailable remembers values with no embedding, per vocabulary.
	unavailable map[string]map[string]bool
}

func (r *dmlRun) all() bool {
	r.unavailable = map[string]map[string]bool{}
	return r.rawRows() &&
		r.enumValues() &&
		r.sizeValues() &&
		r.cleanRows() &&
		r.oneToOne() &&
		r.manyToMany()
}

func (r *dmlRun) rawRows() bool {
	t := r.p.Raw
	table := r.p.Layout.RawTable
	for _, row := range t.Rows {
		if !r.emit(r.insertRow(StageRawDML, table, t.Columns, row)) {
			return false
		}
	}
	return true
}

func (r *dmlRun) cleanRows() bool {
	t := r.p.Clean
	table := r.p.Layout.CleanTable
	for _, row := range t.Rows {
		if _, ok := transformer.NaturalKey(row[r.p.Layout.NaturalKey]); !ok {
			continue
		}
		if !r.emit(r.insertRow(StageCleanDML, table, t.Columns, row)) {
			return false
		}
	}
	return true
}

func (r *dmlRun) insertRow(stage Stage, table string, cols []string, row records.Record) Statement {
	d := r.g.d
	a := dialect.NewArgs(d)
	ph := make([]string, len(cols))
	for i, c := range cols {
		ph[i] = a.Add(row[c])
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), dialect.QuoteIdents(d, cols), dialect.JoinList(ph))
	return Statement{Stage: stage, Table: table, SQL: sql, Args: a.Values()}
}

// enumValues upserts the sorted distinct values of every embedded link.
func (r *dmlRun) enumValues() bool {
	for _, link := range r.p.Links {
		if !link.Embedded {
			continue
		}
		for _, v := range r.distinct(link.Attribute) {
			st, ok, err := r.upsertValue(StageEnumDML, link, v)
			if err != nil {
				return r.fail(err)
			}
			if !ok {
				r.s.skipped[link.Attribute]++
				continue
			}
			if !r.emit(st) {
				return false
			}
		}
	}
	return true
}

// sizeValues upserts the values of every size column into one vocabulary.
func (r *dmlRun) sizeValues() bool {
	seen := map[string]struct{}{}
	var all []string
	for _, c := range r.p.SizeColumns {
		for _, v := range r.distinct(c) {
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				all = append(all, v)
			}
		}
	}
	slices.Sort(all)

	link := Link{Vocabulary: r.p.Layout.SizeTable}
	for _, v := range all {
		st, _, err := r.upsertValue(StageSizeDML, link, v)
		if err != nil {
			return r.fail(err)
		}
		if !r.emit(st) {
			return false
		}
	}
	return true
}

// oneToOne upserts each row's value, then points the row's foreign key at it.
func (r *dmlRun) oneToOne() bool {
	d := r.g.d
	l := r.p.Layout
	for _, link := range r.p.OneToOne() {
		for _, row := range r.p.Clean.Rows {
			key := row[l.NaturalKey]
			if _, ok := transformer.NaturalKey(key); !ok {
				continue
			}
			vals := cellValues(row[link.Attribute])
			if len(vals) == 0 {
				continue
			}
			v := vals[0]

			up, ok, err := r.upsertValue(StageOneToOne, link, v)
			if err != nil {
				return r.fail(err)
			}
			if !ok {
				r.s.skippedLinks++
				continue
			}
			if !r.emit(up) {
				return false
			}

			a := dialect.NewArgs(d)
			sql := fmt.Sprintf("UPDATE %s SET %s = (SELECT v.%s FROM %s v WHERE v.%s = %s) WHERE %s = %s",
				d.QuoteIdent(l.CleanTable), d.QuoteIdent(ForeignKey(link.Attribute)),
				d.QuoteIdent(IDColumn), d.QuoteIdent(link.Vocabulary), d.QuoteIdent("value"), a.Add(v),
				d.QuoteIdent(l.NaturalKey), a.Add(key))
			if !r.emit(Statement{Stage: StageOneToOne, Table: l.CleanTable, SQL: sql, Args: a.Values()}) {
				return false
			}
		}
	}
	return true
}

// manyToMany upserts every value of each row and inserts one bridge row
// per distinct (product, value) pair.
func (r *dmlRun) manyToMany() bool {
	d := r.g.d
	l := r.p.Layout
	for _, link := range r.p.ManyToMany() {
		bridge := l.BridgeTable(link.Attribute)
		fk := ForeignKey(link.Attribute)
		id := d.QuoteIdent(IDColumn)
		guard := fmt.Sprintf("SELECT 1 FROM %s b WHERE b.%s = p.%s AND b.%s = v.%s",
			d.QuoteIdent(bridge), d.QuoteIdent("product_id"), id, d.QuoteIdent(fk), id)

		for _, row := range r.p.Clean.Rows {
			key := row[l.NaturalKey]
			if _, ok := transformer.NaturalKey(key); !ok {
				continue
			}
			for _, v := range cellValues(row[link.Attribute]) {
				up, ok, err := r.upsertValue(StageManyToMany, link, v)
				if err != nil {
					return r.fail(err)
				}
				if !ok {
					r.s.skippedLinks++
					continue
				}
				if !r.emit(up) {
					return false
				}

				a := dialect.NewArgs(d)
				sel := fmt.Sprintf("SELECT p.%s, v.%s FROM %s p, %s v WHERE p.%s = %s AND v.%s = %s",
					id, id, d.QuoteIdent(l.CleanTable), d.QuoteIdent(link.Vocabulary),
					d.QuoteIdent(l.NaturalKey), a.Add(key), d.QuoteIdent("value"), a.Add(v))
				sql := d.InsertSelectIgnore(bridge, []string{"product_id", fk}, sel, guard)
				if !r.emit(Statement{Stage: StageManyToMany, Table: bridge, SQL: sql, Args: a.Values()}) {
					return false
				}
			}
		}
	}
	return true
}

// upsertValue renders the insert-if-absent of v into link's vocabulary.
// ok is false when the vocabulary needs an embedding and none is
// available; err is set only for failures other than unavailability.
func (r *dmlRun) upsertValue(stage Stage, link Link, v string) (Statement, bool, error) {
	d := r.g.d
	cols := []string{"value"}
	vals := []any{v}

	if link.Embedded {
		if r.unavailable[link.Vocabulary][v] {
			return Statement{}, false, nil
		}
		vec, err := r.g.embed.Embed(r.ctx, v)
		switch {
		case errors.Is(err, embedding.ErrUnavailable):
			if r.unavailable[link.Vocabulary] == nil {
				r.unavailable[link.Vocabulary] = map[string]bool{}
			}
			r.unavailable[link.Vocabulary][v] = true
			r.g.logger.Warn("embedding unavailable, value skipped",
				zap.String("stage", string(stage)),
				zap.String("attribute", link.Attribute),
				zap.String("value", v),
				zap.Error(err),
			)
			return Statement{}, false, nil
		case err != nil:
			return Statement{}, false, fmt.Errorf("embed %s value %q: %w", link.Attribute, v, err)
		}
		cols = append(cols, "embedding")
		vals = append(vals, vec)
	}

	a := dialect.NewArgs(d)
	sql := d.InsertIgnore(link.Vocabulary, cols, vals, []string{"value"}, a)
	return Statement{Stage: stage, Table: link.Vocabulary, SQL: sql, Args: a.Values()}, true, nil
}

// distinct returns the sorted distinct values of a canonical column.
func (r *dmlRun) distinct(col string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range r.p.Clean.Rows {
		if _, ok := transformer.NaturalKey(row[r.p.Layout.NaturalKey]); !ok {
			continue
		}
		for _, v := range cellValues(row[col]) {
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	slices.Sort(out)
	return out
}

// cellValues splits a normalized cell on the canonical separator.
// Non-string values are a single value in their string form.
func cellValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return transformer.CanonicalValues(t)
	default:
		return []string{records.Stringify(t)}
	}
}

package sqlgen

import (
	"errors"
	"fmt"
	"slices"

	"catalogetl/internal/probe"
	"catalogetl/internal/transformer"
	"catalogetl/pkg/records"
)

// ErrReservedColumn is returned when a data column uses a name the
// generated schema needs for itself.
var ErrReservedColumn = errors.New("reserved column name")

// IDColumn is the surrogate key of every generated table.
const IDColumn = "id"

// Layout names the generated tables.
type Layout struct {
	RawTable   string
	CleanTable string
	SizeTable  string
	EnumPrefix string
	NaturalKey string
}

// DefaultLayout matches the catalog's historical table names.
func DefaultLayout() Layout {
	return Layout{
		RawTable:   "rawdata",
		CleanTable: "clean_products",
		SizeTable:  "sizes",
		EnumPrefix: "enum_",
		NaturalKey: "product_quality_colour_number",
	}
}

// EnumTable is the vocabulary table of attr.
func (l Layout) EnumTable(attr string) string { return capIdent(l.EnumPrefix + attr) }

// BridgeTable is the association table of a many:many attr.
func (l Layout) BridgeTable(attr string) string { return capIdent(l.CleanTable + "_" + attr) }

// ForeignKey is the canonical-table column of a one:one attr.
func ForeignKey(attr string) string { return capIdent(attr + "_id") }

func capIdent(s string) string { return probe.TruncateIdentifier(s) }

// Link is one attribute related to products.
type Link struct {
	Attribute  string
	ManyToMany bool
	// Vocabulary is the table holding the attribute's values.
	Vocabulary string
	// Embedded is true for enum vocabularies, false for the size table.
	Embedded bool
}

// Plan is everything the generator needs. It is read-only once built.
type Plan struct {
	Layout Layout

	Raw           *records.Table
	RawProfiles   []probe.ColumnProfile
	Clean         *records.Table
	CleanProfiles []probe.ColumnProfile

	Classification probe.Classification
	Links          []Link
	SizeColumns    []string

	// Dimensions is the embedding column width.
	Dimensions int

	// Drop prepends DROP TABLE statements for every table the layout can
	// produce for DropAttributes, including bridges of attributes that are
	// now one:one.
	Drop           bool
	DropAttributes []string
}

// PlanOptions configures NewPlan.
type PlanOptions struct {
	Layout Layout
	// Attributes are the sanitized enum attribute columns.
	Attributes  []string
	SizeColumns []string
	Dimensions  int
	Drop        bool
}

// NewPlan profiles both tables and classifies attribute and size columns
// against the canonical table.
//
// Errors:
//   - ErrReservedColumn if a data column is named "id" or clashes with a
//     foreign key column
//   - *probe.IdentifierCollisionError if two attributes map to the same
//     table name after the identifier cap
func NewPlan(raw, clean *records.Table, opt PlanOptions) (Plan, error) {
	l := opt.Layout
	p := Plan{
		Layout:        l,
		Raw:           raw,
		RawProfiles:   probe.ProfileTable(raw),
		Clean:         clean,
		CleanProfiles: probe.ProfileTable(clean),
		SizeColumns:   opt.SizeColumns,
		Dimensions:    opt.Dimensions,
		Drop:          opt.Drop,
	}

	attrs := slices.DeleteFunc(slices.Clone(opt.Attributes), func(a string) bool {
		return a == l.NaturalKey || slices.Contains(opt.SizeColumns, a)
	})
	candidates := append(slices.Clone(attrs), opt.SizeColumns...)
	p.Classification = probe.ClassifyRelationships(clean, candidates, transformer.CanonicalSeparator)
	p.DropAttributes = append(slices.Clone(attrs), opt.SizeColumns...)

	for _, a := range p.Classification.Linked() {
		link := Link{
			Attribute:  a,
			ManyToMany: p.Classification.IsManyToMany(a),
			Vocabulary: l.SizeTable,
		}
		if !slices.Contains(opt.SizeColumns, a) {
			link.Vocabulary = l.EnumTable(a)
			link.Embedded = true
		}
		p.Links = append(p.Links, link)
	}

	if err := p.checkNames(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (p Plan) checkNames() error {
	for _, t := range []*records.Table{p.Raw, p.Clean} {
		if t.Has(IDColumn) {
			return fmt.Errorf("%w: source column %q", ErrReservedColumn, IDColumn)
		}
	}

	tables := map[string]string{
		p.Layout.RawTable:   "raw table",
		p.Layout.CleanTable: "clean table",
		p.Layout.SizeTable:  "size table",
	}
	for _, a := range p.DropAttributes {
		names := []string{p.Layout.BridgeTable(a)}
		if !slices.Contains(p.SizeColumns, a) {
			names = append(names, p.Layout.EnumTable(a))
		}
		for _, n := range names {
			if prev, dup := tables[n]; dup {
				return &probe.IdentifierCollisionError{First: prev, Second: a, Identifier: n}
			}
			tables[n] = a
		}
	}

	for _, link := range p.Links {
		if link.ManyToMany {
			continue
		}
		fk := ForeignKey(link.Attribute)
		if p.Clean.Has(fk) {
			return fmt.Errorf("%w: %q is the foreign key of %q", ErrReservedColumn, fk, link.Attribute)
		}
	}
	return nil
}

// OneToOne returns the one:one links.
func (p Plan) OneToOne() []Link {
	return slices.DeleteFunc(slices.Clone(p.Links), func(l Link) bool { return l.ManyToMany })
}

// ManyToMany returns the many:many links.
func (p Plan) ManyToMany() []Link {
	return slices.DeleteFunc(slices.Clone(p.Links), func(l Link) bool { return !l.ManyToMany })
}

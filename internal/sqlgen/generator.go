package sqlgen

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"catalogetl/internal/dialect"
	"catalogetl/internal/embedding"
)

// Generator renders plans for one dialect. It holds no per-run state; each
// Stream carries its own counters.
type Generator struct {
	d      dialect.Dialect
	embed  embedding.Provider
	logger *zap.Logger
}

// NewGenerator returns a generator. A nil provider means no value can be
// embedded; a nil logger discards logs.
func NewGenerator(d dialect.Dialect, p embedding.Provider, logger *zap.Logger) *Generator {
	if p == nil {
		p = embedding.None{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{d: d, embed: p, logger: logger}
}

// Dialect returns the dialect statements are rendered for.
func (g *Generator) Dialect() dialect.Dialect { return g.d }

// DDL returns the schema statements of p in dependency order: optional
// drops, preamble, raw table, enum vocabularies, size vocabulary, canonical
// table, bridges, then one:one foreign key columns.
func (g *Generator) DDL(p Plan) []Statement {
	var out []Statement
	if p.Drop {
		out = append(out, g.dropStatements(p)...)
	}
	for _, s := range g.d.Preamble() {
		out = append(out, Statement{Stage: StagePreamble, SQL: s})
	}

	out = append(out, g.rawTable(p))
	for _, link := range p.Links {
		if link.Embedded {
			out = append(out, g.enumTable(p, link))
		}
	}
	out = append(out, g.sizeTable(p))
	out = append(out, g.cleanTable(p))
	for _, link := range p.ManyToMany() {
		out = append(out, g.bridgeTable(p, link))
	}
	for _, link := range p.OneToOne() {
		if st, ok := g.foreignKeyColumn(p, link); ok {
			out = append(out, st)
		}
	}
	return out
}

// dropStatements drops bridges, the canonical table, vocabularies, then the
// raw table.
func (g *Generator) dropStatements(p Plan) []Statement {
	l := p.Layout
	var out []Statement
	drop := func(table string) {
		out = append(out, Statement{Stage: StageDrop, Table: table, SQL: g.d.DropTable(table)})
	}

	for _, a := range p.DropAttributes {
		drop(l.BridgeTable(a))
	}
	drop(l.CleanTable)
	for _, a := range p.DropAttributes {
		if !slices.Contains(p.SizeColumns, a) {
			drop(l.EnumTable(a))
		}
	}
	drop(l.SizeTable)
	drop(l.RawTable)
	return out
}

func (g *Generator) rawTable(p Plan) Statement {
	defs := []string{g.d.SurrogateKey()}
	for _, c := range p.RawProfiles {
		defs = append(defs, g.d.QuoteIdent(c.Name)+" "+g.d.ColumnType(c.Type))
	}
	t := p.Layout.RawTable
	return Statement{Stage: StageRawDDL, Table: t, SQL: g.d.CreateTable(t, defs)}
}

func (g *Generator) vocabularyDefs(withEmbedding bool, dim int) []string {
	defs := []string{
		g.d.SurrogateKey(),
		g.d.QuoteIdent("value") + " " + g.d.ValueType() + " NOT NULL UNIQUE",
	}
	if withEmbedding {
		defs = append(defs, g.d.QuoteIdent("embedding")+" "+g.d.VectorType(dim))
	}
	return defs
}

func (g *Generator) enumTable(p Plan, link Link) Statement {
	return Statement{
		Stage: StageEnumDDL,
		Table: link.Vocabulary,
		SQL:   g.d.CreateTable(link.Vocabulary, g.vocabularyDefs(true, p.dimensions())),
	}
}

func (g *Generator) sizeTable(p Plan) Statement {
	t := p.Layout.SizeTable
	return Statement{Stage: StageSizeDDL, Table: t, SQL: g.d.CreateTable(t, g.vocabularyDefs(false, 0))}
}

func (g *Generator) cleanTable(p Plan) Statement {
	l := p.Layout
	defs := []string{g.d.SurrogateKey()}
	for _, c := range p.CleanProfiles {
		def := g.d.QuoteIdent(c.Name) + " " + g.d.ColumnType(c.Type)
		if c.Name == l.NaturalKey {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	// Engines without ADD COLUMN IF NOT EXISTS get their foreign keys here.
	var constraints []string
	for _, link := range p.OneToOne() {
		if _, ok := g.d.AddColumn(l.CleanTable, ForeignKey(link.Attribute), g.d.RefType()); ok {
			continue
		}
		fk := ForeignKey(link.Attribute)
		defs = append(defs, g.d.QuoteIdent(fk)+" "+g.d.RefType())
		constraints = append(constraints, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			g.d.QuoteIdent(fk), g.d.QuoteIdent(link.Vocabulary), g.d.QuoteIdent(IDColumn)))
	}

	defs = append(defs, "UNIQUE ("+g.d.QuoteIdent(l.NaturalKey)+")")
	defs = append(defs, constraints...)
	return Statement{Stage: StageCleanDDL, Table: l.CleanTable, SQL: g.d.CreateTable(l.CleanTable, defs)}
}

func (g *Generator) bridgeTable(p Plan, link Link) Statement {
	l := p.Layout
	t := l.BridgeTable(link.Attribute)
	pid := g.d.QuoteIdent("product_id")
	vid := g.d.QuoteIdent(ForeignKey(link.Attribute))
	id := g.d.QuoteIdent(IDColumn)

	defs := []string{
		pid + " " + g.d.RefType() + " NOT NULL",
		vid + " " + g.d.RefType() + " NOT NULL",
		"PRIMARY KEY (" + pid + ", " + vid + ")",
		fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE CASCADE", pid, g.d.QuoteIdent(l.CleanTable), id),
		fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE CASCADE", vid, g.d.QuoteIdent(link.Vocabulary), id),
	}
	return Statement{Stage: StageBridgeDDL, Table: t, SQL: g.d.CreateTable(t, defs)}
}

func (g *Generator) foreignKeyColumn(p Plan, link Link) (Statement, bool) {
	t := p.Layout.CleanTable
	def := fmt.Sprintf("%s REFERENCES %s (%s)", g.d.RefType(), g.d.QuoteIdent(link.Vocabulary), g.d.QuoteIdent(IDColumn))
	sql, ok := g.d.AddColumn(t, ForeignKey(link.Attribute), def)
	if !ok {
		return Statement{}, false
	}
	return Statement{Stage: StageForeignKey, Table: t, SQL: sql}, true
}

func (p Plan) dimensions() int {
	if p.Dimensions > 0 {
		return p.Dimensions
	}
	return embedding.Dimensions
}

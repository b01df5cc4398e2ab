package sqlgen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogetl/internal/dialect"
	"catalogetl/internal/embedding"
	"catalogetl/internal/transformer"
	"catalogetl/pkg/records"
)

const key = "product_quality_colour_number"

func rawTable() *records.Table {
	t := &records.Table{
		Columns: []string{key, "colour", "range", "size"},
		Rows: []records.Record{
			{key: "A-1", "colour": "Red; Red; Blue", "range": "O'Brien Workwear", "size": "M"},
			{key: "A-1", "colour": "Red", "range": "O'Brien Workwear", "size": "M"},
			{key: "B-2", "colour": "Navy", "range": "Pro", "size": "S"},
			{key: "nan", "colour": "Black", "range": "Pro", "size": "XL"},
		},
	}
	t.RecomputeKinds()
	return t
}

func buildPlan(t *testing.T, drop bool) Plan {
	t.Helper()

	raw := rawTable()
	merged, err := transformer.Merge(raw, transformer.MergeOptions{NaturalKey: key})
	require.NoError(t, err)

	p, err := NewPlan(raw, merged.Table, PlanOptions{
		Layout:      DefaultLayout(),
		Attributes:  []string{"range", "colour", "segments"},
		SizeColumns: merged.SizeColumns,
		Drop:        drop,
	})
	require.NoError(t, err)
	return p
}

func collect(t *testing.T, s *Stream) []Statement {
	t.Helper()
	var out []Statement
	for st, err := range s.All() {
		require.NoError(t, err)
		out = append(out, st)
	}
	return out
}

func byStage(sts []Statement, stage Stage) []Statement {
	var out []Statement
	for _, s := range sts {
		if s.Stage == stage {
			out = append(out, s)
		}
	}
	return out
}

func TestNewPlan_Classification(t *testing.T) {
	t.Parallel()

	p := buildPlan(t, false)
	assert.Equal(t, []string{"range", "size"}, p.Classification.OneToOne)
	assert.Equal(t, []string{"colour"}, p.Classification.ManyToMany)
	assert.Equal(t, []string{"segments"}, p.Classification.Missing)

	require.Len(t, p.Links, 3)
	assert.Equal(t, Link{Attribute: "range", Vocabulary: "enum_range", Embedded: true}, p.Links[0])
	assert.Equal(t, Link{Attribute: "size", Vocabulary: "sizes"}, p.Links[1])
	assert.Equal(t, Link{Attribute: "colour", ManyToMany: true, Vocabulary: "enum_colour", Embedded: true}, p.Links[2])
}

func TestNewPlan_ReservedColumn(t *testing.T) {
	t.Parallel()

	raw := &records.Table{Columns: []string{key, "id"}, Kinds: []records.Kind{records.KindString, records.KindInt}}
	_, err := NewPlan(raw, raw, PlanOptions{Layout: DefaultLayout()})
	assert.ErrorIs(t, err, ErrReservedColumn)
}

func TestDDL_OrderPostgres(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.Postgres{}, embedding.NewHashing(embedding.Dimensions), nil)
	ddl := g.DDL(buildPlan(t, false))

	var got []string
	for _, s := range ddl {
		got = append(got, string(s.Stage)+":"+s.Table)
	}
	assert.Equal(t, []string{
		"ddl.preamble:",
		"ddl.raw:rawdata",
		"ddl.enum:enum_range",
		"ddl.enum:enum_colour",
		"ddl.sizes:sizes",
		"ddl.clean:clean_products",
		"ddl.bridge:clean_products_colour",
		"ddl.fk:clean_products",
		"ddl.fk:clean_products",
	}, got)

	assert.Equal(t, "CREATE EXTENSION IF NOT EXISTS vector", ddl[0].SQL)
	assert.Contains(t, ddl[2].SQL, `"embedding" vector(384)`)
	assert.Contains(t, ddl[5].SQL, `UNIQUE ("product_quality_colour_number")`)
	assert.Contains(t, ddl[6].SQL, `PRIMARY KEY ("product_id", "colour_id")`)
	assert.Contains(t, ddl[6].SQL, `REFERENCES "enum_colour" ("id") ON DELETE CASCADE`)
	assert.Equal(t, `ALTER TABLE "clean_products" ADD COLUMN IF NOT EXISTS "range_id" INTEGER REFERENCES "enum_range" ("id")`, ddl[7].SQL)
	assert.Equal(t, `ALTER TABLE "clean_products" ADD COLUMN IF NOT EXISTS "size_id" INTEGER REFERENCES "sizes" ("id")`, ddl[8].SQL)
}

func TestDDL_SQLiteDeclaresForeignKeysInline(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.SQLite{}, nil, nil)
	ddl := g.DDL(buildPlan(t, false))

	assert.Empty(t, byStage(ddl, StageForeignKey))
	assert.Empty(t, byStage(ddl, StagePreamble))

	clean := byStage(ddl, StageCleanDDL)
	require.Len(t, clean, 1)
	assert.Contains(t, clean[0].SQL, `"range_id" INTEGER`)
	assert.Contains(t, clean[0].SQL, `FOREIGN KEY ("range_id") REFERENCES "enum_range" ("id")`)
	assert.Contains(t, clean[0].SQL, `FOREIGN KEY ("size_id") REFERENCES "sizes" ("id")`)
}

func TestDDL_DropOrder(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.SQLite{}, nil, nil)
	drops := byStage(g.DDL(buildPlan(t, true)), StageDrop)

	var tables []string
	for _, s := range drops {
		tables = append(tables, s.Table)
		assert.True(t, strings.HasPrefix(s.SQL, "DROP TABLE IF EXISTS "))
	}
	assert.Equal(t, []string{
		"clean_products_range", "clean_products_colour", "clean_products_segments", "clean_products_size",
		"clean_products",
		"enum_range", "enum_colour", "enum_segments",
		"sizes",
		"rawdata",
	}, tables)
}

func TestStream_RedRedBlueYieldsTwoBridgeRows(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.Postgres{}, embedding.NewHashing(embedding.Dimensions), nil)
	sts := collect(t, g.Stream(context.Background(), buildPlan(t, false)))

	var bridgeValues []any
	for _, s := range byStage(sts, StageManyToMany) {
		if s.Table != "clean_products_colour" {
			continue
		}
		require.Len(t, s.Args, 2)
		if s.Args[0] == "A-1" {
			bridgeValues = append(bridgeValues, s.Args[1])
		}
		assert.Contains(t, s.SQL, "ON CONFLICT DO NOTHING")
	}
	assert.Equal(t, []any{"Red", "Blue"}, bridgeValues)

	// Vocabulary gets each distinct colour once, sorted.
	var colours []any
	for _, s := range byStage(sts, StageEnumDML) {
		if s.Table == "enum_colour" {
			colours = append(colours, s.Args[0])
			assert.IsType(t, embedding.Vector{}, s.Args[1])
		}
	}
	assert.Equal(t, []any{"Blue", "Navy", "Red"}, colours)
}

// Comma-split columns keep ';' inside a value; vocabulary and bridge rows
// must carry the value whole.
func TestStream_CommaColumnValuesStayWhole(t *testing.T) {
	t.Parallel()

	raw := &records.Table{
		Columns: []string{key, "product_type_attributes"},
		Rows: []records.Record{
			{key: "A-1", "product_type_attributes": "Water;proof, Lined"},
			{key: "B-2", "product_type_attributes": "Zip;pocket"},
		},
	}
	raw.RecomputeKinds()
	merged, err := transformer.Merge(raw, transformer.MergeOptions{
		NaturalKey:   key,
		CommaColumns: []string{"product_type_attributes"},
	})
	require.NoError(t, err)
	require.Equal(t, "Water;proof | Lined", merged.Table.Rows[0]["product_type_attributes"])

	p, err := NewPlan(raw, merged.Table, PlanOptions{
		Layout:     DefaultLayout(),
		Attributes: []string{"product_type_attributes"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"product_type_attributes"}, p.Classification.ManyToMany)

	g := NewGenerator(dialect.Postgres{}, embedding.NewHashing(embedding.Dimensions), nil)
	sts := collect(t, g.Stream(context.Background(), p))

	var values []any
	for _, s := range byStage(sts, StageEnumDML) {
		values = append(values, s.Args[0])
	}
	assert.Equal(t, []any{"Lined", "Water;proof", "Zip;pocket"}, values)

	bridge := DefaultLayout().BridgeTable("product_type_attributes")
	var links [][]any
	for _, s := range byStage(sts, StageManyToMany) {
		if s.Table == bridge {
			links = append(links, s.Args)
		}
	}
	assert.Equal(t, [][]any{
		{"A-1", "Water;proof"},
		{"A-1", "Lined"},
		{"B-2", "Zip;pocket"},
	}, links)
}

func TestStream_StageOrderAndCounts(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.SQLite{}, embedding.NewHashing(embedding.Dimensions), nil)
	s := g.Stream(context.Background(), buildPlan(t, false))
	sts := collect(t, s)

	var order []Stage
	for _, st := range sts {
		if len(order) == 0 || order[len(order)-1] != st.Stage {
			order = append(order, st.Stage)
		}
	}
	assert.Equal(t, []Stage{
		StageRawDDL, StageEnumDDL, StageSizeDDL, StageCleanDDL, StageBridgeDDL,
		StageRawDML, StageEnumDML, StageSizeDML, StageCleanDML, StageOneToOne, StageManyToMany,
	}, order)

	// Raw keeps the invalid-key row; canonical does not.
	assert.Len(t, byStage(sts, StageRawDML), 4)
	assert.Len(t, byStage(sts, StageCleanDML), 2)
	// sizes: M and S; the nan row's XL belongs to no product.
	assert.Len(t, byStage(sts, StageSizeDML), 2)
	assert.Equal(t, 4, s.Emitted()[StageRawDML])
}

func TestStream_OneToOneResolution(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.Postgres{}, embedding.NewHashing(embedding.Dimensions), nil)
	sts := collect(t, g.Stream(context.Background(), buildPlan(t, false)))

	var updates []Statement
	for _, s := range byStage(sts, StageOneToOne) {
		if strings.HasPrefix(s.SQL, "UPDATE") {
			updates = append(updates, s)
		}
	}
	require.NotEmpty(t, updates)
	assert.Equal(t,
		`UPDATE "clean_products" SET "range_id" = (SELECT v."id" FROM "enum_range" v WHERE v."value" = $1) WHERE "product_quality_colour_number" = $2`,
		updates[0].SQL)
	assert.Equal(t, []any{"O'Brien Workwear", "A-1"}, updates[0].Args)
	assert.Contains(t, updates[0].Inline(dialect.Postgres{}), "'O''Brien Workwear'")
}

func TestStream_UnavailableEmbeddingsSkipped(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.SQLite{}, embedding.None{}, nil)
	s := g.Stream(context.Background(), buildPlan(t, false))
	sts := collect(t, s)

	assert.Empty(t, byStage(sts, StageEnumDML))
	assert.Equal(t, map[string]int{"range": 2, "colour": 3}, s.Skipped())
	// Size links have no embedding and still resolve.
	assert.NotEmpty(t, byStage(sts, StageOneToOne))
	// range for A-1 and B-2, colour Red, Blue, Navy.
	assert.Equal(t, 5, s.SkippedLinks())
}

func TestStream_SingleConsumption(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.SQLite{}, nil, nil)
	s := g.Stream(context.Background(), buildPlan(t, false))

	n := 0
	for _, err := range s.All() {
		require.NoError(t, err)
		n++
		if n == 3 {
			break
		}
	}

	var errs []error
	for _, err := range s.All() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStreamConsumed)
}

func TestStream_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := NewGenerator(dialect.SQLite{}, nil, nil)
	s := g.Stream(ctx, buildPlan(t, false))

	var last error
	n := 0
	for _, err := range s.All() {
		if err != nil {
			last = err
			break
		}
		n++
		if n == 2 {
			cancel()
		}
	}
	assert.ErrorIs(t, last, context.Canceled)
	assert.Equal(t, 2, n)
}

func TestStatementInline_MSSQL(t *testing.T) {
	t.Parallel()

	g := NewGenerator(dialect.MSSQL{}, embedding.NewHashing(4), nil)
	p := buildPlan(t, false)
	p.Dimensions = 4
	for st, err := range g.Stream(context.Background(), p).All() {
		require.NoError(t, err)
		if st.Stage == StageEnumDML && st.Args[0] == "O'Brien Workwear" {
			sql := st.Inline(dialect.MSSQL{})
			assert.True(t, strings.HasPrefix(sql, "IF NOT EXISTS (SELECT 1 FROM [enum_range] WHERE [value] = N'O''Brien Workwear') INSERT INTO [enum_range]"), sql)
			assert.Contains(t, sql, "N'[")
			return
		}
	}
	t.Fatal("enum upsert for O'Brien Workwear not generated")
}

package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"catalogetl/internal/probe"
)

// Postgres targets PostgreSQL with the pgvector extension.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdent(name string) string { return quoteWith(name, `"`, `"`) }

func (Postgres) ParamStyle() ParamStyle { return Dollar }

func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Postgres) ColumnType(t probe.SQLType) string { return t.String() }

func (Postgres) SurrogateKey() string { return `"id" SERIAL PRIMARY KEY` }

func (Postgres) RefType() string { return "INTEGER" }

func (Postgres) ValueType() string { return "TEXT" }

func (Postgres) VectorType(dim int) string { return fmt.Sprintf("vector(%d)", dim) }

func (Postgres) Preamble() []string {
	return []string{"CREATE EXTENSION IF NOT EXISTS vector"}
}

func (d Postgres) CreateTable(table string, defs []string) string {
	return createIfNotExists(d, table, defs)
}

func (d Postgres) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table) + " CASCADE"
}

func (d Postgres) AddColumn(table, column, def string) (string, bool) {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
		d.QuoteIdent(table), d.QuoteIdent(column), def), true
}

func (d Postgres) InsertIgnore(table string, cols []string, vals []any, keyCols []string, a *Args) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		d.QuoteIdent(table), QuoteIdents(d, cols), valuesList(cols, vals, a))
}

func (d Postgres) InsertSelectIgnore(table string, cols []string, sel, guard string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) %s ON CONFLICT DO NOTHING",
		d.QuoteIdent(table), QuoteIdents(d, cols), sel)
}

func (Postgres) BoolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (Postgres) StringLiteral(s string) string { return singleQuote(s) }

func createIfNotExists(d Dialect, table string, defs []string) string {
	return "CREATE TABLE IF NOT EXISTS " + d.QuoteIdent(table) + " (\n  " + joinDefs(defs) + "\n)"
}

func joinDefs(defs []string) string {
	return strings.Join(defs, ",\n  ")
}

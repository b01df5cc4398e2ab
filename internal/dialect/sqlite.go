package dialect

import (
	"fmt"

	"catalogetl/internal/probe"
)

// SQLite targets SQLite 3 (modernc.org/sqlite). Vectors are stored as their
// text literal.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdent(name string) string { return quoteWith(name, `"`, `"`) }

func (SQLite) ParamStyle() ParamStyle { return Question }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) ColumnType(t probe.SQLType) string { return t.String() }

func (SQLite) SurrogateKey() string { return `"id" INTEGER PRIMARY KEY AUTOINCREMENT` }

func (SQLite) RefType() string { return "INTEGER" }

func (SQLite) ValueType() string { return "TEXT" }

func (SQLite) VectorType(int) string { return "TEXT" }

func (SQLite) Preamble() []string { return nil }

func (d SQLite) CreateTable(table string, defs []string) string {
	return createIfNotExists(d, table, defs)
}

func (d SQLite) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

// AddColumn is unsupported: SQLite has no ADD COLUMN IF NOT EXISTS.
func (SQLite) AddColumn(string, string, string) (string, bool) { return "", false }

func (d SQLite) InsertIgnore(table string, cols []string, vals []any, keyCols []string, a *Args) string {
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), QuoteIdents(d, cols), valuesList(cols, vals, a))
}

func (d SQLite) InsertSelectIgnore(table string, cols []string, sel, guard string) string {
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) %s",
		d.QuoteIdent(table), QuoteIdents(d, cols), sel)
}

func (SQLite) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (SQLite) StringLiteral(s string) string { return singleQuote(s) }

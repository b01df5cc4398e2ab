package dialect

import (
	"fmt"
	"strings"

	"catalogetl/internal/probe"
)

// MySQL targets MySQL 8 / MariaDB with utf8mb4 tables.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdent(name string) string { return quoteWith(name, "`", "`") }

func (MySQL) ParamStyle() ParamStyle { return Question }

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) ColumnType(t probe.SQLType) string { return t.String() }

func (MySQL) SurrogateKey() string { return "`id` INT AUTO_INCREMENT PRIMARY KEY" }

func (MySQL) RefType() string { return "INT" }

// ValueType stays within the 3072-byte InnoDB index limit for utf8mb4.
func (MySQL) ValueType() string { return "VARCHAR(768)" }

func (MySQL) VectorType(int) string { return "TEXT" }

func (MySQL) Preamble() []string { return nil }

func (d MySQL) CreateTable(table string, defs []string) string {
	return createIfNotExists(d, table, defs)
}

func (d MySQL) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

// AddColumn is unsupported: MySQL has no ADD COLUMN IF NOT EXISTS.
func (MySQL) AddColumn(string, string, string) (string, bool) { return "", false }

func (d MySQL) InsertIgnore(table string, cols []string, vals []any, keyCols []string, a *Args) string {
	return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), QuoteIdents(d, cols), valuesList(cols, vals, a))
}

func (d MySQL) InsertSelectIgnore(table string, cols []string, sel, guard string) string {
	return fmt.Sprintf("INSERT IGNORE INTO %s (%s) %s",
		d.QuoteIdent(table), QuoteIdents(d, cols), sel)
}

func (MySQL) BoolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// StringLiteral doubles both ' and \, since backslash escapes are on by
// default.
func (MySQL) StringLiteral(s string) string {
	return singleQuote(strings.ReplaceAll(s, `\`, `\\`))
}

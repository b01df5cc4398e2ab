// Package dialect renders the SQL fragments that differ between the
// supported engines: identifier quoting, parameter placeholders, column
// types, idempotent DDL guards, insert-if-absent idioms, and literals.
//
// Statements are built with Args so that placeholders appear in the SQL text
// in the same order as their arguments. A parameter is never reused, which
// keeps '?' dialects positional.
package dialect

import (
	"fmt"
	"strings"

	"catalogetl/internal/probe"
)

// ParamStyle is how a dialect spells positional parameters.
type ParamStyle int

const (
	// Dollar is $1, $2, ... (Postgres).
	Dollar ParamStyle = iota
	// Question is ?, ?, ... (SQLite, MySQL).
	Question
	// AtP is @p1, @p2, ... (SQL Server).
	AtP
)

// Dialect is implemented once per engine. Implementations are stateless.
type Dialect interface {
	// Name is the storage kind this dialect serves ("postgres", "sqlite", ...).
	Name() string

	QuoteIdent(name string) string
	ParamStyle() ParamStyle
	Placeholder(n int) string

	// ColumnType renders an inferred type.
	ColumnType(t probe.SQLType) string
	// SurrogateKey is the full "id" column definition.
	SurrogateKey() string
	// RefType is the column type of a foreign key to a surrogate key.
	RefType() string
	// ValueType is the type of a unique vocabulary value.
	ValueType() string
	// VectorType is the embedding column type for dim dimensions.
	VectorType(dim int) string

	// Preamble returns statements run before any DDL.
	Preamble() []string
	// CreateTable renders an idempotent CREATE TABLE.
	CreateTable(table string, defs []string) string
	// DropTable renders an existence-guarded DROP TABLE.
	DropTable(table string) string
	// AddColumn renders an idempotent ALTER TABLE ... ADD column. ok is false
	// when the engine has no such idiom and the column must be declared
	// inline in CREATE TABLE instead.
	AddColumn(table, column, def string) (stmt string, ok bool)

	// InsertIgnore renders a single-row insert that is a no-op when a row
	// with the same values in keyCols already exists. Placeholders are
	// taken from a in text order.
	InsertIgnore(table string, cols []string, vals []any, keyCols []string, a *Args) string
	// InsertSelectIgnore renders INSERT ... <sel> that skips rows already
	// present. sel must end in a WHERE clause; guard is a correlated
	// "SELECT 1 ..." matching an existing row, used by engines without a
	// conflict clause.
	InsertSelectIgnore(table string, cols []string, sel, guard string) string

	// BoolLiteral renders a boolean constant.
	BoolLiteral(b bool) string
	// StringLiteral renders a quoted string constant.
	StringLiteral(s string) string
}

// ForName returns the dialect for a storage kind.
func ForName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "mssql", "sqlserver":
		return MSSQL{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("dialect: unknown %q", name)
	}
}

// Args accumulates positional arguments while a statement is written.
type Args struct {
	d    Dialect
	vals []any
}

// NewArgs starts an empty argument list for d.
func NewArgs(d Dialect) *Args { return &Args{d: d} }

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.vals = append(a.vals, v)
	return a.d.Placeholder(len(a.vals))
}

// Values returns the arguments in placeholder order.
func (a *Args) Values() []any { return a.vals }

// QuoteIdents quotes and comma-joins names.
func QuoteIdents(d Dialect, names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = d.QuoteIdent(n)
	}
	return strings.Join(q, ", ")
}

// quoteWith wraps s in open/close and doubles every embedded closer.
func quoteWith(s string, open, closer string) string {
	return open + strings.ReplaceAll(s, closer, closer+closer) + closer
}

// singleQuote is the standard SQL string literal with ' doubled.
func singleQuote(s string) string {
	return quoteWith(s, "'", "'")
}

func valuesList(cols []string, vals []any, a *Args) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = a.Add(vals[i])
	}
	return strings.Join(ph, ", ")
}

// JoinList comma-joins already rendered fragments.
func JoinList(xs []string) string { return strings.Join(xs, ", ") }

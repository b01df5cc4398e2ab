package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"catalogetl/internal/probe"
)

// MSSQL targets SQL Server 2016 or later.
type MSSQL struct{}

func (MSSQL) Name() string { return "mssql" }

func (MSSQL) QuoteIdent(name string) string { return quoteWith(name, "[", "]") }

func (MSSQL) ParamStyle() ParamStyle { return AtP }

func (MSSQL) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

func (MSSQL) ColumnType(t probe.SQLType) string {
	switch t.Base {
	case probe.TypeBoolean:
		return "BIT"
	case probe.TypeVarchar:
		return "NVARCHAR(" + strconv.Itoa(t.Length) + ")"
	case probe.TypeText:
		return "NVARCHAR(MAX)"
	default:
		return t.String()
	}
}

func (MSSQL) SurrogateKey() string { return "[id] INT IDENTITY(1,1) PRIMARY KEY" }

func (MSSQL) RefType() string { return "INT" }

// ValueType stays within the 900-byte index key limit.
func (MSSQL) ValueType() string { return "NVARCHAR(450)" }

func (MSSQL) VectorType(int) string { return "NVARCHAR(MAX)" }

func (MSSQL) Preamble() []string { return nil }

// CreateTable wraps CREATE TABLE in an OBJECT_ID guard.
func (d MSSQL) CreateTable(table string, defs []string) string {
	return fmt.Sprintf("IF OBJECT_ID(N%s, N'U') IS NULL BEGIN CREATE TABLE %s (\n  %s\n); END;",
		singleQuote(table), d.QuoteIdent(table), joinDefs(defs))
}

func (d MSSQL) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func (d MSSQL) AddColumn(table, column, def string) (string, bool) {
	return fmt.Sprintf("IF COL_LENGTH(N%s, N%s) IS NULL ALTER TABLE %s ADD %s %s",
		singleQuote(table), singleQuote(column), d.QuoteIdent(table), d.QuoteIdent(column), def), true
}

// InsertIgnore guards the insert with IF NOT EXISTS; key values are bound
// again for the guard.
func (d MSSQL) InsertIgnore(table string, cols []string, vals []any, keyCols []string, a *Args) string {
	var conds []string
	for _, k := range keyCols {
		for i, c := range cols {
			if c == k {
				conds = append(conds, d.QuoteIdent(c)+" = "+a.Add(vals[i]))
			}
		}
	}
	return fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM %s WHERE %s) INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(conds, " AND "),
		d.QuoteIdent(table), QuoteIdents(d, cols), valuesList(cols, vals, a))
}

func (d MSSQL) InsertSelectIgnore(table string, cols []string, sel, guard string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) %s AND NOT EXISTS (%s)",
		d.QuoteIdent(table), QuoteIdents(d, cols), sel, guard)
}

func (MSSQL) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// StringLiteral uses the N'' form so non-ASCII text survives.
func (MSSQL) StringLiteral(s string) string { return "N" + singleQuote(s) }

package probe

import (
	"strconv"
	"unicode/utf8"

	"catalogetl/pkg/records"
)

// Base SQL types produced by inference. Dialects render them.
const (
	TypeBigInt  = "BIGINT"
	TypeDecimal = "DECIMAL(10,2)"
	TypeBoolean = "BOOLEAN"
	TypeVarchar = "VARCHAR"
	TypeText    = "TEXT"
)

const (
	// maxVarcharLen is the widest text column still declared as VARCHAR.
	maxVarcharLen = 255
	// minVarcharLen keeps narrow columns from being declared VARCHAR(1).
	minVarcharLen = 10
)

// SQLType is an inferred column type. Length is set for VARCHAR only.
type SQLType struct {
	Base   string
	Length int
}

func (t SQLType) String() string {
	if t.Base == TypeVarchar {
		return TypeVarchar + "(" + strconv.Itoa(t.Length) + ")"
	}
	return t.Base
}

// ColumnProfile is computed once per column over every row.
type ColumnProfile struct {
	Name      string
	Type      SQLType
	MaxLength int
	Nullable  bool
}

// InferSQLType maps a column kind and its full value set to a SQL type.
//
// Numeric and boolean kinds map directly. Text columns are sized from the
// longest value after records.Stringify, so nulls count as "nan" (3 runes).
// A single long value widens the whole column; anything over 255 runes is
// TEXT. Inference never fails: unknown kinds fall through to text.
func InferSQLType(kind records.Kind, values []any) SQLType {
	switch kind {
	case records.KindInt:
		return SQLType{Base: TypeBigInt}
	case records.KindFloat:
		return SQLType{Base: TypeDecimal}
	case records.KindBool:
		return SQLType{Base: TypeBoolean}
	}

	n := maxTextLen(values)
	if n > maxVarcharLen {
		return SQLType{Base: TypeText}
	}
	return SQLType{Base: TypeVarchar, Length: max(minVarcharLen, n)}
}

// ProfileTable profiles every column of t in column order.
func ProfileTable(t *records.Table) []ColumnProfile {
	out := make([]ColumnProfile, 0, len(t.Columns))
	for i, name := range t.Columns {
		values := t.Values(name)
		nullable := false
		for _, v := range values {
			if v == nil {
				nullable = true
				break
			}
		}
		out = append(out, ColumnProfile{
			Name:      name,
			Type:      InferSQLType(t.Kinds[i], values),
			MaxLength: maxTextLen(values),
			Nullable:  nullable,
		})
	}
	return out
}

func maxTextLen(values []any) int {
	n := 0
	for _, v := range values {
		if l := utf8.RuneCountInString(records.Stringify(v)); l > n {
			n = l
		}
	}
	return n
}

package dialect

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Literal renders v as a SQL constant for d.
//
// nil and NaN render as NULL, strings are quoted with embedded quotes
// doubled, booleans use the dialect spelling. driver.Valuer values (such as
// embedding vectors) are rendered from their Value.
func Literal(d Dialect, v any) string {
	if dv, ok := v.(driver.Valuer); ok {
		val, err := dv.Value()
		if err != nil {
			return "NULL"
		}
		v = val
	}

	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return d.StringLiteral(t)
	case []byte:
		return d.StringLiteral(string(t))
	case bool:
		return d.BoolLiteral(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return formatFloat(float64(t), 32)
	case float64:
		return formatFloat(t, 64)
	default:
		return d.StringLiteral(fmt.Sprint(t))
	}
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NULL"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// Inline substitutes args into the placeholders of query, producing a
// standalone statement. Placeholders inside quoted identifiers or string
// literals are left alone, as are placeholders without a matching argument.
func Inline(d Dialect, query string, args []any) string {
	if len(args) == 0 {
		return query
	}

	style := d.ParamStyle()
	var b strings.Builder
	b.Grow(len(query) + 16*len(args))

	next := 0
	for i := 0; i < len(query); i++ {
		c := query[i]

		if closer, ok := quoteClose(c, style); ok {
			j := skipQuoted(query, i+1, closer)
			b.WriteString(query[i:j])
			i = j - 1
			continue
		}

		switch {
		case style == Question && c == '?':
			if next < len(args) {
				b.WriteString(Literal(d, args[next]))
				next++
				continue
			}
		case style == Dollar && c == '$':
			if n, end := readIndex(query, i+1); end > i+1 && n >= 1 && n <= len(args) {
				b.WriteString(Literal(d, args[n-1]))
				i = end - 1
				continue
			}
		case style == AtP && c == '@' && i+1 < len(query) && query[i+1] == 'p':
			if n, end := readIndex(query, i+2); end > i+2 && n >= 1 && n <= len(args) {
				b.WriteString(Literal(d, args[n-1]))
				i = end - 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func quoteClose(c byte, style ParamStyle) (byte, bool) {
	switch c {
	case '\'', '"', '`':
		return c, true
	case '[':
		if style == AtP {
			return ']', true
		}
	}
	return 0, false
}

// skipQuoted returns the index just past the closing quote that starts
// scanning at from. A doubled closing quote is an escape.
func skipQuoted(s string, from int, closer byte) int {
	for j := from; j < len(s); j++ {
		if s[j] != closer {
			continue
		}
		if j+1 < len(s) && s[j+1] == closer {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func readIndex(s string, from int) (int, int) {
	end := from
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == from {
		return 0, from
	}
	n, err := strconv.Atoi(s[from:end])
	if err != nil {
		return 0, from
	}
	return n, end
}

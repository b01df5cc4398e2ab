package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"catalogetl/pkg/records"
)

// Fingerprint computes a deterministic SHA-256 over a table's columns, kinds
// and cells, in order. Two tables with the same fingerprint render the same
// statements.
//
// Canonicalization rules:
//   - columns and kinds are hashed first, then each row column by column
//   - cells are separated by ASCII Unit Separator (0x1f), rows by
//     Record Separator (0x1e)
//   - nil is a single NUL byte so missing differs from empty string
//   - floats use the shortest 'g' form
//
// Output is a lowercase hex string (length 64).
func Fingerprint(t *records.Table) string {
	h := sha256.New()
	var b strings.Builder

	for i, c := range t.Columns {
		b.WriteString(c)
		b.WriteByte(':')
		if i < len(t.Kinds) {
			b.WriteString(t.Kinds[i].String())
		}
		b.WriteByte('\x1f')
	}
	b.WriteByte('\x1e')
	h.Write([]byte(b.String()))

	for _, row := range t.Rows {
		b.Reset()
		for _, c := range t.Columns {
			appendCanonicalValue(&b, row[c])
			b.WriteByte('\x1f')
		}
		b.WriteByte('\x1e')
		h.Write([]byte(b.String()))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// appendCanonicalValue appends a stable representation of a cell value.
// It avoids fmt.Sprint for the types records carry.
func appendCanonicalValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('\x00')
	case string:
		b.WriteString(t)
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case float32:
		b.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 32))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	default:
		b.WriteString(fmt.Sprint(t))
	}
}

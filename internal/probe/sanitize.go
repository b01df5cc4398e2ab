package probe

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxIdentifierLen is the identifier cap, in characters, shared by the
// supported engines (Postgres NAMEDATALEN-1).
const MaxIdentifierLen = 63

// SanitizeIdentifier converts an arbitrary column header into a lowercase
// SQL identifier.
//
// Rules, in order:
//   - trim whitespace, lowercase and compose to NFC ("e\u0301" => "é")
//   - replace every character that is not a letter, digit or '_' with '_'
//   - prefix "col_" when the result starts with a digit
//   - truncate to MaxIdentifierLen characters
//
// Letters outside ASCII are kept ("Größe" => "größe"). SanitizeIdentifier is
// idempotent, and runs of separators are not collapsed: "Quality  Number"
// and "Quality Number" stay distinct.
//
// "" or whitespace-only input returns "". Use SanitizeColumns to get a
// positional name instead.
func SanitizeIdentifier(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	s = norm.NFC.String(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := b.String()

	if first, _ := utf8.DecodeRuneInString(out); unicode.IsDigit(first) {
		out = "col_" + out
	}
	return TruncateIdentifier(out)
}

// TruncateIdentifier cuts s to at most MaxIdentifierLen characters without
// splitting a multi-byte character.
func TruncateIdentifier(s string) string {
	n := 0
	for i := range s {
		if n == MaxIdentifierLen {
			return s[:i]
		}
		n++
	}
	return s
}

// IdentifierCollisionError reports two distinct source headers that
// sanitize to the same identifier.
type IdentifierCollisionError struct {
	First      string
	Second     string
	Identifier string
}

func (e *IdentifierCollisionError) Error() string {
	return fmt.Sprintf("columns %q and %q both sanitize to identifier %q", e.First, e.Second, e.Identifier)
}

// SanitizeColumns sanitizes a header row.
//
// Blank headers are named col_<n>, where n is the 1-based column position.
// A collision between two headers is returned as *IdentifierCollisionError;
// nothing is renamed or suffixed.
func SanitizeColumns(headers []string) ([]string, error) {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, h := range headers {
		id := SanitizeIdentifier(h)
		if id == "" {
			id = "col_" + strconv.Itoa(i+1)
		}
		if j, dup := seen[id]; dup {
			return nil, &IdentifierCollisionError{First: headers[j], Second: h, Identifier: id}
		}
		seen[id] = i
		out[i] = id
	}
	return out, nil
}

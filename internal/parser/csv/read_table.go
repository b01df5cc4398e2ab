package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"catalogetl/pkg/records"
)

// Options controls how a delimited file is read into a records.Table.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// TrimSpace trims leading/trailing whitespace of every cell.
	TrimSpace bool

	// LazyQuotes relaxes quote handling (see encoding/csv).
	LazyQuotes bool

	// NullTokens are cell values read as null. Nil means DefaultNullTokens;
	// use an empty non-nil slice to treat only empty cells as null.
	NullTokens []string

	// NameColumns maps the raw header row to table column names (for
	// example probe.SanitizeColumns). Nil keeps the headers as-is.
	NameColumns func(headers []string) ([]string, error)

	// OnError is called for records that cannot be read or have too many
	// fields. Such records are skipped.
	OnError func(line int, err error)
}

// DefaultNullTokens mirrors the usual dataframe NA markers.
var DefaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a",
	"nan", "null",
}

// Result is the loaded table plus the original header row.
type Result struct {
	Headers []string
	Table   *records.Table
}

// ReadTable reads the whole of src into memory, infers a Kind per column
// over every row, and converts cells to typed values.
//
// Short records are padded with nulls. Records with more fields than the
// header are reported through OnError and skipped.
func ReadTable(ctx context.Context, src io.Reader, opt Options) (Result, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}
	nullTokens := opt.NullTokens
	if nullTokens == nil {
		nullTokens = DefaultNullTokens
	}
	nulls := make(map[string]struct{}, len(nullTokens))
	for _, tok := range nullTokens {
		nulls[tok] = struct{}{}
	}

	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	line := 1
	hdr, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return Result{}, fmt.Errorf("read header: empty input")
		}
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	headers := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		headers[i] = strings.TrimSpace(h)
	}

	columns := headers
	if opt.NameColumns != nil {
		columns, err = opt.NameColumns(headers)
		if err != nil {
			return Result{}, err
		}
		if len(columns) != len(headers) {
			return Result{}, fmt.Errorf("column naming returned %d names for %d headers", len(columns), len(headers))
		}
	}

	// cells[col][row]; nil pointer means null.
	cells := make([][]*string, len(columns))
	rows := 0

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if opt.OnError != nil {
				opt.OnError(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}
		if len(rec) > len(columns) {
			if opt.OnError != nil {
				opt.OnError(line, fmt.Errorf("expected %d fields, saw %d", len(columns), len(rec)))
			}
			continue
		}

		for c := range columns {
			if c >= len(rec) {
				cells[c] = append(cells[c], nil)
				continue
			}
			v := rec[c]
			if opt.TrimSpace && hasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			if _, isNull := nulls[v]; isNull {
				cells[c] = append(cells[c], nil)
				continue
			}
			s := v
			cells[c] = append(cells[c], &s)
		}
		rows++
	}

	tbl := &records.Table{
		Columns: columns,
		Kinds:   make([]records.Kind, len(columns)),
		Rows:    make([]records.Record, rows),
	}
	for i := range tbl.Rows {
		tbl.Rows[i] = make(records.Record, len(columns))
	}
	for c, name := range columns {
		kind, values := parseColumn(cells[c])
		tbl.Kinds[c] = kind
		for i, v := range values {
			tbl.Rows[i][name] = v
		}
	}

	return Result{Headers: headers, Table: tbl}, nil
}

func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

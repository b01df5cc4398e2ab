package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []any
		want   Kind
	}{
		{"ints", []any{int64(1), int64(2)}, KindInt},
		{"ints with null widen to float", []any{int64(1), nil}, KindFloat},
		{"mixed numbers", []any{int64(1), 2.5}, KindFloat},
		{"all null", []any{nil, nil}, KindFloat},
		{"empty column", nil, KindFloat},
		{"bools", []any{true, false}, KindBool},
		{"bools with null", []any{true, nil}, KindString},
		{"strings", []any{"a", int64(1)}, KindString},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectKind(tt.values))
		})
	}
}

func TestStringify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "nan", Stringify(nil))
	assert.Equal(t, "1.0", Stringify(1.0))
	assert.Equal(t, "2.25", Stringify(2.25))
	assert.Equal(t, "True", Stringify(true))
	assert.Equal(t, "42", Stringify(int64(42)))
	assert.Equal(t, "abc", Stringify("abc"))
}

func TestTable_ValuesAndRecomputeKinds(t *testing.T) {
	t.Parallel()

	tbl := &Table{
		Columns: []string{"a", "b"},
		Rows: []Record{
			{"a": int64(1), "b": "x"},
			{"a": int64(2), "b": nil},
		},
	}
	tbl.RecomputeKinds()

	assert.Equal(t, []Kind{KindInt, KindString}, tbl.Kinds)
	assert.Equal(t, []any{int64(1), int64(2)}, tbl.Values("a"))
	assert.Equal(t, KindString, tbl.Kind("missing"))
	assert.Equal(t, 1, tbl.Index("b"))
	assert.Equal(t, 2, tbl.Len())
}

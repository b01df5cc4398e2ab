package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catalogetl/pkg/records"
)

func TestFingerprint(t *testing.T) {
	t.Parallel()

	base := func() *records.Table {
		return &records.Table{
			Columns: []string{"k", "v"},
			Kinds:   []records.Kind{records.KindString, records.KindString},
			Rows:    []records.Record{{"k": "a", "v": ""}},
		}
	}

	h := Fingerprint(base())
	assert.Len(t, h, 64)
	assert.Equal(t, h, Fingerprint(base()))

	withNil := base()
	withNil.Rows[0]["v"] = nil
	assert.NotEqual(t, h, Fingerprint(withNil), "nil must differ from empty string")

	reordered := base()
	reordered.Columns = []string{"v", "k"}
	assert.NotEqual(t, h, Fingerprint(reordered))

	rekinded := base()
	rekinded.Kinds[1] = records.KindFloat
	assert.NotEqual(t, h, Fingerprint(rekinded))
}

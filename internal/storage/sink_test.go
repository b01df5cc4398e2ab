package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogetl/internal/storage"
	_ "catalogetl/internal/storage/sqlite"
)

func TestRegister_Panics(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, storage.Config) (storage.Sink, error) { return nil, nil }

	assert.Panics(t, func() { storage.Register("", noop) })
	assert.Panics(t, func() { storage.Register("register-nil", nil) })

	storage.Register("register-twice", noop)
	assert.Panics(t, func() { storage.Register("register-twice", noop) })
	assert.Contains(t, storage.Kinds(), "register-twice")
}

func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := storage.New(context.Background(), storage.Config{Kind: "oracle"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrUnknownKind))
	assert.Contains(t, err.Error(), "sqlite")
}

func TestSQLXSink_SQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sink, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer sink.Close()
	assert.Equal(t, "sqlite", sink.Dialect().Name())

	tx, err := sink.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, price REAL)`)
	require.NoError(t, err)
	n, err := tx.Exec(ctx, `INSERT INTO t (name, price) VALUES (?, ?), (?, ?)`, "a", 1.5, "b", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := tx.Query(ctx, `SELECT id, name, price FROM t ORDER BY id`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price"}, rows.Columns)
	assert.Equal(t, [][]any{{int64(1), "a", 1.5}, {int64(2), "b", nil}}, rows.Values)

	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")
}

func TestSQLXSink_RollbackDiscards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sink, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer sink.Close()

	tx, err := sink.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `CREATE TABLE t (v TEXT)`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	tx, err = sink.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO t (v) VALUES (?)`, "x")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	tx, err = sink.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	rows, err := tx.Query(ctx, `SELECT COUNT(*) FROM t`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(0)}}, rows.Values)
}

func TestSQLite_ForeignKeysEnforced(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sink, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer sink.Close()
	d := sink.Dialect()

	tx, err := sink.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, d.CreateTable("p", []string{d.SurrogateKey()}))
	require.NoError(t, err)
	_, err = tx.Exec(ctx, d.CreateTable("c", []string{
		`"p_id" INTEGER`,
		`FOREIGN KEY ("p_id") REFERENCES "p" ("id")`,
	}))
	require.NoError(t, err)

	_, err = tx.Exec(ctx, `INSERT INTO "c" ("p_id") VALUES (?)`, 42)
	assert.Error(t, err)
}

func TestNormalizeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"bytes", []byte("abc"), "abc"},
		{"int32", int32(7), int64(7)},
		{"float32", float32(0.5), float64(0.5)},
		{"nil", nil, nil},
		{"string", "s", "s"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, storage.NormalizeValue(tt.in))
		})
	}
}

var _ storage.Sink = (*storage.SQLXSink)(nil)

// Package sqlite is the SQLite sink (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"catalogetl/internal/dialect"
	"catalogetl/internal/storage"
)

func init() {
	storage.Register("sqlite", Open)
}

// Open opens the database at cfg.DSN (a path, "file:" URI or ":memory:")
// with foreign keys enforced. The pool is limited to one connection so an
// in-memory database is shared by every statement.
func Open(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	db, err := sqlx.Open("sqlite", withForeignKeys(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return storage.NewSQLXSink(db, dialect.SQLite{}), nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

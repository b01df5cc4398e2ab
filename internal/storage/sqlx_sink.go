package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"catalogetl/internal/dialect"
)

// SQLXSink adapts a database/sql driver, opened through sqlx, to Sink. It
// serves the sqlite, mssql and mysql backends.
type SQLXSink struct {
	db *sqlx.DB
	d  dialect.Dialect
}

// NewSQLXSink wraps an open database.
func NewSQLXSink(db *sqlx.DB, d dialect.Dialect) *SQLXSink {
	return &SQLXSink{db: db, d: d}
}

// DB exposes the underlying handle (for tests and maintenance queries).
func (s *SQLXSink) DB() *sqlx.DB { return s.db }

func (s *SQLXSink) Dialect() dialect.Dialect { return s.d }

func (s *SQLXSink) Close() error { return s.db.Close() }

func (s *SQLXSink) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", s.d.Name(), err)
	}
	return &sqlxTx{tx: tx}, nil
}

type sqlxTx struct {
	tx   *sqlx.Tx
	done bool
}

func (t *sqlxTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Not every driver reports affected rows for DDL.
		return 0, nil
	}
	return n, nil
}

func (t *sqlxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return Rows{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Rows{}, err
	}
	out := Rows{Columns: cols}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return Rows{}, err
		}
		for i, v := range vals {
			vals[i] = NormalizeValue(v)
		}
		out.Values = append(out.Values, vals)
	}
	return out, rows.Err()
}

func (t *sqlxTx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.done = true
	return nil
}

func (t *sqlxTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

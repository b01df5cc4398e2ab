// Package postgres is the PostgreSQL sink, built on a pgx connection pool.
// Vocabulary embeddings need the pgvector extension.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"catalogetl/internal/dialect"
	"catalogetl/internal/storage"
)

func init() {
	storage.Register("postgres", Open)
}

// Sink implements storage.Sink for Postgres.
type Sink struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Sink{pool: pool, logger: cfg.Logger}, nil
}

func (s *Sink) Dialect() dialect.Dialect { return dialect.Postgres{} }

// Close closes the connection pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func (s *Sink) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return storage.Rows{}, err
	}
	defer rows.Close()

	var out storage.Rows
	for _, fd := range rows.FieldDescriptions() {
		out.Columns = append(out.Columns, fd.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return storage.Rows{}, err
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		out.Values = append(out.Values, vals)
	}
	return out, rows.Err()
}

// normalize maps pgx-specific scan types onto plain cell values.
func normalize(v any) any {
	if n, ok := v.(pgtype.Numeric); ok {
		if !n.Valid {
			return nil
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return storage.NormalizeValue(v)
}

func (t *pgTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Rollback is a no-op once the transaction is committed.
func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

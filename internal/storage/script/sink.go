// Package script is a sink that writes the run as a standalone SQL script
// instead of executing it. Statements are rendered with inline literals.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"catalogetl/internal/dialect"
	"catalogetl/internal/storage"
)

// ErrNoQuery is returned by Query; a script has no rows to read.
var ErrNoQuery = errors.New("script: queries are not supported")

func init() {
	storage.Register("script", Open)
}

// Sink buffers statements and writes them on Commit only, so a failed run
// leaves no file behind.
type Sink struct {
	path   string
	d      dialect.Dialect
	logger *zap.Logger
	stdout io.Writer
}

// Open targets cfg.DSN, a file path or "-" for stdout. cfg.Dialect selects
// the rendering dialect (default postgres).
func Open(_ context.Context, cfg storage.Config) (storage.Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("script: output path is empty")
	}
	name := cfg.Dialect
	if name == "" {
		name = "postgres"
	}
	d, err := dialect.ForName(name)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return &Sink{path: cfg.DSN, d: d, logger: cfg.Logger, stdout: os.Stdout}, nil
}

func (s *Sink) Dialect() dialect.Dialect { return s.d }

func (s *Sink) Close() error { return nil }

func (s *Sink) Begin(context.Context) (storage.Tx, error) {
	return &scriptTx{s: s}, nil
}

type scriptTx struct {
	s    *Sink
	buf  bytes.Buffer
	n    int
	done bool
}

func (t *scriptTx) Exec(_ context.Context, query string, args ...any) (int64, error) {
	if t.done {
		return 0, fmt.Errorf("script: transaction closed")
	}
	t.buf.WriteString(dialect.Inline(t.s.d, query, args))
	t.buf.WriteString(";\n")
	t.n++
	return 0, nil
}

func (t *scriptTx) Query(context.Context, string, ...any) (storage.Rows, error) {
	return storage.Rows{}, ErrNoQuery
}

func (t *scriptTx) Commit(context.Context) error {
	if t.done {
		return fmt.Errorf("script: transaction closed")
	}
	t.done = true

	if t.s.path == "-" {
		_, err := t.s.stdout.Write(t.buf.Bytes())
		return err
	}
	if err := writeFileAtomic(t.s.path, t.buf.Bytes()); err != nil {
		return fmt.Errorf("script: write %s: %w", t.s.path, err)
	}
	if t.s.logger != nil {
		t.s.logger.Info("script written", zap.String("path", t.s.path), zap.Int("statements", t.n))
	}
	return nil
}

func (t *scriptTx) Rollback(context.Context) error {
	t.done = true
	t.buf.Reset()
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".catalog-*.sql")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

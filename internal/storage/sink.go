// Package storage defines the SQL execution sink the catalog is loaded into
// and a registry of backends.
//
// Backends register themselves from init(); import internal/storage/all to
// link every backend into a binary.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"catalogetl/internal/dialect"
)

// ErrUnknownKind is returned by New for an unregistered backend kind.
var ErrUnknownKind = errors.New("storage: unknown kind")

// Config is the minimal configuration needed to open a sink.
//
// Edge cases:
//   - Kind must match a registered backend kind.
//   - DSN is passed through to the backend; the script backend reads it as
//     the output file path.
//   - Dialect is used by backends that do not imply one (script).
type Config struct {
	Kind    string
	DSN     string
	Dialect string
	Logger  *zap.Logger
}

// Sink is a database the generated statements run against.
type Sink interface {
	// Begin starts the single transaction of a run.
	Begin(ctx context.Context) (Tx, error)
	// Dialect is the SQL dialect statements must be rendered in.
	Dialect() dialect.Dialect
	// Close releases backend resources. Call once.
	Close() error
}

// Tx is a sink transaction.
//
// Rollback after a successful Commit is a no-op, so callers may always
// defer Rollback.
type Tx interface {
	// Exec runs one statement and returns the affected row count when the
	// backend reports one.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// Query runs a statement returning rows.
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Rows is a fully read result set. Values are normalized with NormalizeValue.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Factory opens a sink for cfg.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend under kind (e.g. "postgres", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered. Duplicate
//     registration fails fast rather than picking a backend ambiguously.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens a sink with the factory registered for cfg.Kind.
//
// Errors:
//   - ErrUnknownKind (wrapped) if cfg.Kind is empty or not registered.
//   - Whatever the factory returns.
func New(ctx context.Context, cfg Config) (Sink, error) {
	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownKind, cfg.Kind, Kinds())
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

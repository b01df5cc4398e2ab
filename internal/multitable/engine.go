// Package multitable loads the catalog: it reads and merges the CSV, plans
// the relational layout and executes the generated statements against a
// storage sink in one transaction.
package multitable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalogetl/internal/logging"
	"catalogetl/internal/metrics"
	"catalogetl/internal/sqlgen"
	"catalogetl/internal/storage"
)

// StatementError reports the statement a sink rejected. Index is the
// 0-based position in the stream.
type StatementError struct {
	Index int
	Stage sqlgen.Stage
	Table string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d (%s, table %s): %v", e.Index, e.Stage, e.Table, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// ExecResult summarizes one executed stream.
type ExecResult struct {
	Executed     int
	RowsAffected int64
	PerStage     map[sqlgen.Stage]int
}

// Engine executes a statement stream against a sink.
type Engine struct {
	Sink    storage.Sink
	Logger  *zap.Logger
	Metrics metrics.Backend
}

// Execute runs every statement of stream inside a single transaction,
// pulling the next statement only after the previous one succeeded.
//
// Errors:
//   - *StatementError when the sink rejects a statement; no further
//     statements are generated and the transaction is rolled back.
//   - Generation errors (context cancellation, embedding failures other than
//     unavailability, sqlgen.ErrStreamConsumed) also roll back.
func (e *Engine) Execute(ctx context.Context, stream *sqlgen.Stream) (ExecResult, error) {
	if e.Sink == nil {
		return ExecResult{}, errors.New("engine: Sink is required")
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := e.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	res := ExecResult{PerStage: map[sqlgen.Stage]int{}}

	tx, err := e.Sink.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer func() {
		// No-op after a successful commit.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	for st, err := range stream.All() {
		if err != nil {
			return res, fmt.Errorf("generate statement %d: %w", res.Executed, err)
		}

		start := time.Now()
		n, err := tx.Exec(ctx, st.SQL, st.Args...)
		m.ObserveHistogram(metrics.StatementDuration, time.Since(start).Seconds(), metrics.Labels{"stage": string(st.Stage)})
		if err != nil {
			logger.Error("statement failed",
				zap.Int("index", res.Executed),
				zap.String("stage", string(st.Stage)),
				zap.String("table", st.Table),
				zap.String("sql", logging.SanitizeQuery(st.SQL)),
				zap.Error(err))
			return res, &StatementError{Index: res.Executed, Stage: st.Stage, Table: st.Table, Err: err}
		}
		m.IncCounter(metrics.StatementsTotal, 1, metrics.Labels{"stage": string(st.Stage)})

		res.Executed++
		res.RowsAffected += n
		res.PerStage[st.Stage]++
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

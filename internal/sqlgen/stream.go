package sqlgen

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when a Stream is iterated a second time.
var ErrStreamConsumed = errors.New("sqlgen: statement stream already consumed")

// Stream is a single-use, lazily generated statement sequence. Statements
// are produced one at a time as the consumer pulls them; breaking out of
// the loop stops generation. It cannot be restarted: later statements may
// depend on rows written by earlier ones.
type Stream struct {
	seq  iter.Seq2[Statement, error]
	used atomic.Bool

	skipped      map[string]int
	skippedLinks int
	emitted      map[Stage]int
}

// Stream returns the full statement sequence of p: DDL, then DML.
func (g *Generator) Stream(ctx context.Context, p Plan) *Stream {
	s := &Stream{skipped: map[string]int{}, emitted: map[Stage]int{}}
	s.seq = func(yield func(Statement, error) bool) {
		emit := func(st Statement) bool {
			if err := ctx.Err(); err != nil {
				yield(Statement{}, err)
				return false
			}
			s.emitted[st.Stage]++
			return yield(st, nil)
		}
		for _, st := range g.DDL(p) {
			if !emit(st) {
				return
			}
		}
		run := dmlRun{g: g, p: p, s: s, ctx: ctx, emit: emit, fail: func(err error) bool {
			yield(Statement{}, err)
			return false
		}}
		run.all()
	}
	return s
}

// All returns the sequence. Only the first call yields statements; any
// later call yields a single ErrStreamConsumed.
func (s *Stream) All() iter.Seq2[Statement, error] {
	if s.used.Swap(true) {
		return func(yield func(Statement, error) bool) {
			yield(Statement{}, ErrStreamConsumed)
		}
	}
	return s.seq
}

// Skipped returns, per attribute, how many distinct values were left out
// of their vocabulary because no embedding was available.
func (s *Stream) Skipped() map[string]int { return s.skipped }

// SkippedLinks counts product links dropped because their value has no
// vocabulary row.
func (s *Stream) SkippedLinks() int { return s.skippedLinks }

// Emitted returns statement counts per stage so far.
func (s *Stream) Emitted() map[Stage]int { return s.emitted }

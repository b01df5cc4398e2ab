package multitable

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"catalogetl/internal/probe"
	"catalogetl/internal/sqlgen"
)

// Report describes one run.
type Report struct {
	RunID string
	Job   string

	// Rows is the raw CSV row count; Products the canonical row count after
	// merge.
	Rows        int
	Products    int
	InvalidKeys int
	Duplicates  int
	SizeColumns []string
	// Fingerprint identifies the canonical table content.
	Fingerprint string

	Classification probe.Classification

	Executed   int
	Statements map[sqlgen.Stage]int

	// SkippedEmbeddings counts vocabulary values left out per attribute
	// because no embedding could be produced; SkippedLinks the product
	// links dropped with them.
	SkippedEmbeddings map[string]int
	SkippedLinks      int

	CacheHits   int64
	CacheMisses int64

	Committed bool
	Duration  time.Duration
}

// Fields renders the report as zap fields.
func (r Report) Fields() []zap.Field {
	stages := make(map[string]int, len(r.Statements))
	for st, n := range r.Statements {
		stages[string(st)] = n
	}
	return []zap.Field{
		zap.Int("rows", r.Rows),
		zap.Int("products", r.Products),
		zap.Int("invalid_keys", r.InvalidKeys),
		zap.Int("duplicates", r.Duplicates),
		zap.Strings("size_columns", r.SizeColumns),
		zap.String("fingerprint", r.Fingerprint),
		zap.Int("statements", r.Executed),
		zap.Any("per_stage", stages),
		zap.Any("skipped_embeddings", r.SkippedEmbeddings),
		zap.Int("skipped_links", r.SkippedLinks),
		zap.Int64("cache_hits", r.CacheHits),
		zap.Int64("cache_misses", r.CacheMisses),
	}
}

// SkippedTotal is the number of vocabulary values without an embedding.
func (r Report) SkippedTotal() int {
	n := 0
	for _, v := range r.SkippedEmbeddings {
		n += v
	}
	return n
}

// StageCounts lists per-stage statement counts in execution order.
func (r Report) StageCounts() []StageCount {
	out := make([]StageCount, 0, len(r.Statements))
	for st, n := range r.Statements {
		out = append(out, StageCount{Stage: st, Count: n})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return stageRank(out[i].Stage) < stageRank(out[j].Stage)
	})
	return out
}

// StageCount pairs a stage with its statement count.
type StageCount struct {
	Stage sqlgen.Stage
	Count int
}

func stageRank(s sqlgen.Stage) int {
	for i, st := range sqlgen.Stages {
		if st == s {
			return i
		}
	}
	return len(sqlgen.Stages)
}

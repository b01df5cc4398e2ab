package multitable

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalogetl/internal/config"
	"catalogetl/internal/embedding"
	"catalogetl/internal/logging"
	"catalogetl/internal/metrics"
	csvparser "catalogetl/internal/parser/csv"
	"catalogetl/internal/probe"
	"catalogetl/internal/source"
	"catalogetl/internal/sqlgen"
	"catalogetl/internal/storage"
	"catalogetl/internal/transformer"
	"catalogetl/pkg/records"
)

// Runner wires configuration to the load steps. The function fields are
// seams for tests; NewDefaultRunner fills them with the real backends.
type Runner struct {
	Logger  *zap.Logger
	Metrics metrics.Backend

	OpenSource  func(ctx context.Context, cfg source.Config) (io.ReadCloser, error)
	NewSink     func(ctx context.Context, cfg storage.Config) (storage.Sink, error)
	NewProvider func(cfg embedding.Config, logger *zap.Logger) (embedding.Provider, error)
}

// NewDefaultRunner returns a Runner using the registered storage backends.
// Backends must be linked in (import internal/storage/all).
func NewDefaultRunner(logger *zap.Logger, m metrics.Backend) *Runner {
	return &Runner{
		Logger:      logger,
		Metrics:     m,
		OpenSource:  source.Open,
		NewSink:     storage.New,
		NewProvider: embedding.New,
	}
}

// Run performs one full load: read, merge, plan, then execute every
// statement in a single sink transaction. The report is filled as far as
// the run got, also on error.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (rep Report, err error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := r.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	rep = Report{RunID: uuid.NewString(), Job: cfg.Job}
	logger = logger.With(zap.String("run_id", rep.RunID), zap.String("job", cfg.Job))
	started := time.Now()
	defer func() { rep.Duration = time.Since(started) }()

	step := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		status := metrics.StepStatus(err)
		m.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": name, "status": status})
		m.ObserveHistogram(metrics.StepDuration, time.Since(start).Seconds(), metrics.Labels{"step": name, "status": status})
		if err != nil {
			logger.Error("stage failed", zap.String("stage", name), zap.Duration("duration", durMS(start)), zap.Error(err))
			return err
		}
		logger.Info("stage ok", zap.String("stage", name), zap.Duration("duration", durMS(start)))
		return nil
	}

	// read
	var raw *records.Table
	if err := step("read", func() error {
		var err error
		raw, err = r.read(ctx, cfg.Source, logger)
		return err
	}); err != nil {
		return rep, err
	}
	rep.Rows = raw.Len()
	m.IncCounter(metrics.RecordsTotal, float64(rep.Rows), metrics.Labels{"kind": "read"})

	// merge
	var merged transformer.MergeResult
	if err := step("merge", func() error {
		var err error
		merged, err = transformer.Merge(raw, transformer.MergeOptions{
			NaturalKey:   cfg.Schema.NaturalKey,
			SizeColumns:  cfg.Schema.SizeColumns,
			CommaColumns: cfg.Schema.CommaColumns,
		})
		return err
	}); err != nil {
		return rep, err
	}
	rep.Products = merged.Table.Len()
	rep.InvalidKeys = merged.InvalidKeys
	rep.Duplicates = merged.Duplicates
	rep.SizeColumns = merged.SizeColumns
	rep.Fingerprint = transformer.Fingerprint(merged.Table)
	m.IncCounter(metrics.RecordsTotal, float64(rep.Products), metrics.Labels{"kind": "merged"})
	m.IncCounter(metrics.RecordsTotal, float64(rep.InvalidKeys), metrics.Labels{"kind": "invalid"})
	m.IncCounter(metrics.RecordsTotal, float64(rep.Duplicates), metrics.Labels{"kind": "duplicate"})

	// plan
	var plan sqlgen.Plan
	if err := step("plan", func() error {
		var err error
		plan, err = sqlgen.NewPlan(raw, merged.Table, sqlgen.PlanOptions{
			Layout: sqlgen.Layout{
				RawTable:   cfg.Schema.RawTable,
				CleanTable: cfg.Schema.CleanTable,
				SizeTable:  cfg.Schema.SizeTable,
				EnumPrefix: cfg.Schema.EnumPrefix,
				NaturalKey: cfg.Schema.NaturalKey,
			},
			Attributes:  cfg.Schema.Attributes,
			SizeColumns: merged.SizeColumns,
			Dimensions:  cfg.Embedding.Dimensions,
			Drop:        cfg.Schema.Drop,
		})
		return err
	}); err != nil {
		return rep, err
	}
	rep.Classification = plan.Classification
	logger.Info("relationships classified",
		zap.Strings("one_to_one", plan.Classification.OneToOne),
		zap.Strings("many_to_many", plan.Classification.ManyToMany),
		zap.Strings("missing", plan.Classification.Missing))

	provider, err := r.NewProvider(embedding.Config{
		Provider:   cfg.Embedding.Provider,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		CacheSize:  cfg.Embedding.CacheSize,
	}, logger)
	if err != nil {
		return rep, fmt.Errorf("embedding provider: %w", err)
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	sink, err := r.NewSink(ctx, storage.Config{
		Kind:    cfg.Storage.Kind,
		DSN:     cfg.Storage.DSN,
		Dialect: cfg.Storage.Dialect,
		Logger:  logger,
	})
	if err != nil {
		return rep, fmt.Errorf("open %s sink %s: %w", cfg.Storage.Kind, logging.SanitizeDSN(cfg.Storage.DSN), err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("sink close failed", zap.Error(err))
		}
	}()

	// execute
	gen := sqlgen.NewGenerator(sink.Dialect(), provider, logger)
	stream := gen.Stream(ctx, plan)
	engine := &Engine{Sink: sink, Logger: logger, Metrics: m}
	var res ExecResult
	execErr := step("execute", func() error {
		var err error
		res, err = engine.Execute(ctx, stream)
		return err
	})

	rep.Statements = res.PerStage
	rep.Executed = res.Executed
	rep.SkippedEmbeddings = stream.Skipped()
	rep.SkippedLinks = stream.SkippedLinks()
	for attr, n := range rep.SkippedEmbeddings {
		m.IncCounter(metrics.EmbeddingsSkipped, float64(n), metrics.Labels{"attribute": attr})
	}
	if c, ok := provider.(*embedding.Cached); ok {
		rep.CacheHits, rep.CacheMisses = c.Stats()
	}
	if execErr != nil {
		return rep, execErr
	}

	rep.Committed = true
	logger.Info("catalog loaded", rep.Fields()...)
	return rep, nil
}

func (r *Runner) read(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (*records.Table, error) {
	rc, err := r.OpenSource(ctx, source.Config{
		Path:      cfg.Path,
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Secure:    !cfg.Insecure,
	})
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	res, err := csvparser.ReadTable(ctx, rc, csvparser.Options{
		Comma:       cfg.Comma(),
		NameColumns: probe.SanitizeColumns,
		OnError: func(line int, err error) {
			logger.Warn("csv record skipped", zap.Int("line", line), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.Path, err)
	}
	return res.Table, nil
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

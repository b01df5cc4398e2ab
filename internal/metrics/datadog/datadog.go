// Package datadog implements a Datadog backend for the internal/metrics package.
//
// NOTE ABOUT FLUSHING:
// Large catalogs can take minutes to load. Submitting only once at process
// exit gives Datadog a single spike, so the backend:
//   - buffers metrics in-memory (lock-protected)
//   - periodically Flush()es on a ticker (default: once per minute)
//   - Flush()es one final time on Close()
//
// Concurrency model:
//   - Callers may IncCounter/ObserveHistogram at any time
//   - Flush snapshots+resets buffers under a mutex, then submits out-of-lock
//   - The flush loop calls Flush() periodically; Close() stops the loop
//
// If the process is killed with SIGKILL/OOM, Close() won't run.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"catalogetl/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric.
	// If empty, defaults to "catalog_load".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod", "service:catalog"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the part of *datadogV2.MetricsApi the backend uses,
// so tests can run without HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	stepCounts      map[string]float64   // step\x00status -> count
	stepDurations   map[string][]float64 // step\x00status -> seconds
	recordCounts    map[string]float64   // kind -> count
	statementCounts map[string]float64   // stage -> count
	statementDur    map[string][]float64 // stage -> seconds
	skippedCounts   map[string]float64   // attribute -> count
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush().
//
// Errors:
//   - Returns any error from the final Flush() submission.
//   - Close must be called once; a second call panics (stopCh closed twice).
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// NewBackend constructs a Datadog backend using the official client.
// Credentials come from DD_API_KEY / DD_SITE as read by the client.
//
// Edge cases:
//   - If opts.FlushEvery <= 0, defaults to 60s.
//   - If opts.JobName is empty, defaults to "catalog_load".
//   - Environment tag selection uses ENV then DD_ENV, otherwise env:unknown.
//
// Errors:
//   - Client construction does not fail under normal conditions; network
//     errors surface from Flush().
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "catalog_load"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
	}
	b.reset()

	go b.loop()
	return b, nil
}

func (b *Backend) reset() {
	b.stepCounts = make(map[string]float64)
	b.stepDurations = make(map[string][]float64)
	b.recordCounts = make(map[string]float64)
	b.statementCounts = make(map[string]float64)
	b.statementDur = make(map[string][]float64)
	b.skippedCounts = make(map[string]float64)
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepTotal:
		b.stepCounts[stepStatusKey(labels["step"], labels["status"])] += delta

	case metrics.RecordsTotal:
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.recordCounts[kind] += delta

	case metrics.StatementsTotal:
		b.statementCounts[orUnknown(labels["stage"])] += delta

	case metrics.EmbeddingsSkipped:
		b.skippedCounts[orUnknown(labels["attribute"])] += delta
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepDuration:
		k := stepStatusKey(labels["step"], labels["status"])
		b.stepDurations[k] = append(b.stepDurations[k], value)

	case metrics.StatementDuration:
		stage := orUnknown(labels["stage"])
		b.statementDur[stage] = append(b.statementDur[stage], value)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// snapshot is the buffered state detached from the backend for one flush.
type snapshot struct {
	stepCounts      map[string]float64
	stepDurations   map[string][]float64
	recordCounts    map[string]float64
	statementCounts map[string]float64
	statementDur    map[string][]float64
	skippedCounts   map[string]float64
}

// snapshotAndReset grabs current buffered metrics and resets internal buffers.
// Must be called with no lock held.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		stepCounts:      b.stepCounts,
		stepDurations:   b.stepDurations,
		recordCounts:    b.recordCounts,
		statementCounts: b.statementCounts,
		statementDur:    b.statementDur,
		skippedCounts:   b.skippedCounts,
	}
	b.reset()
	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.stepCounts) == 0 &&
		len(s.stepDurations) == 0 &&
		len(s.recordCounts) == 0 &&
		len(s.statementCounts) == 0 &&
		len(s.statementDur) == 0 &&
		len(s.skippedCounts) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// Errors:
//   - Returns any error from Datadog submission.
//   - Returns nil if there is nothing to submit.
//
// Edge cases:
//   - Safe to call concurrently with IncCounter/ObserveHistogram.
//   - Buffers are reset even if submission fails.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	if err != nil {
		return fmt.Errorf("datadog: submit: %w", err)
	}
	return nil
}

// buildSeries constructs Datadog series for a snapshot at a fixed timestamp.
// It is pure (no locks, no network, no clocks).
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, 64)

	for k, v := range s.stepCounts {
		step, status := splitStepStatusKey(k)
		series = append(series, countSeries("catalog.step.total", v,
			withTags(b.baseTags, "step:"+step, "status:"+status), nowUnix))
	}
	for k, samples := range s.stepDurations {
		step, status := splitStepStatusKey(k)
		addPercentiles(&series, "catalog.step.duration_seconds", samples,
			withTags(b.baseTags, "step:"+step, "status:"+status), nowUnix)
	}
	for kind, v := range s.recordCounts {
		series = append(series, countSeries("catalog.records.total", v,
			withTags(b.baseTags, "kind:"+kind), nowUnix))
	}
	for stage, v := range s.statementCounts {
		series = append(series, countSeries("catalog.statements.total", v,
			withTags(b.baseTags, "stage:"+stage), nowUnix))
	}
	for stage, samples := range s.statementDur {
		addPercentiles(&series, "catalog.statement.duration_seconds", samples,
			withTags(b.baseTags, "stage:"+stage), nowUnix)
	}
	for attr, v := range s.skippedCounts {
		series = append(series, countSeries("catalog.embeddings.skipped.total", v,
			withTags(b.baseTags, "attribute:"+attr), nowUnix))
	}
	return series
}

// addPercentiles appends p50/p90/p95/p99/max/samples gauges for a sample
// set. It sorts a copy and does nothing for an empty set.
func addPercentiles(series *[]datadogV2.MetricSeries, metricPrefix string, samples []float64, tags []string, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series,
		gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix),
		gaugeSeries(metricPrefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix),
		gaugeSeries(metricPrefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix),
		gaugeSeries(metricPrefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix),
		gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix),
		gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix),
	)
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func stepStatusKey(step, status string) string {
	return step + "\x00" + status
}

func splitStepStatusKey(k string) (step, status string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:catalog".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

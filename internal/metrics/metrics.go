// Package metrics defines the metrics sink the loader reports to and the
// metric names it emits. Backends (see metrics/datadog) buffer and submit.
package metrics

// Metric names. Labels noted per metric.
const (
	// StepTotal counts pipeline steps; labels step, status.
	StepTotal = "catalog_step_total"
	// StepDuration observes step wall time in seconds; labels step, status.
	StepDuration = "catalog_step_duration_seconds"
	// RecordsTotal counts input records; label kind (read, merged, invalid, duplicate).
	RecordsTotal = "catalog_records_total"
	// StatementsTotal counts executed statements; label stage.
	StatementsTotal = "catalog_statements_total"
	// StatementDuration observes statement execution time; label stage.
	StatementDuration = "catalog_statement_duration_seconds"
	// EmbeddingsSkipped counts vocabulary values without an embedding; label attribute.
	EmbeddingsSkipped = "catalog_embeddings_skipped_total"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric events. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush submits buffered data.
	Flush() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

// StepStatus maps an error to the status label.
func StepStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

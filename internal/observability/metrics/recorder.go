// Package metrics provides custom Prometheus metrics for the analysis pipeline.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete collectors so tests can
// pass NoopRecorder.
type Recorder interface {
	// RecordOperation records a stage outcome, e.g. ("decode", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of a stage in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records a failure with its error category.
	RecordError(operation, errorType string)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) RecordOperation(string, string) {}
func (NoopRecorder) RecordDuration(string, float64) {}
func (NoopRecorder) RecordError(string, string)     {}

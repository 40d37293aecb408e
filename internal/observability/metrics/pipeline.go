package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for scanning, analysis and
// calibration.
type PipelineMetrics struct {
	stageOperationsTotal *prometheus.CounterVec
	stageDuration        *prometheus.HistogramVec
	stageErrorsTotal     *prometheus.CounterVec

	chunksTotal   prometheus.Counter
	activeWorkers prometheus.Gauge

	calibrationBeta *prometheus.GaugeVec

	collectors []prometheus.Collector
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.stageOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setbreak_stage_operations_total",
			Help: "Total number of track level pipeline operations",
		},
		[]string{"stage", "status"},
	)

	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "setbreak_stage_duration_seconds",
			Help:    "Time taken per track for each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount15),
		},
		[]string{"stage"},
	)

	m.stageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setbreak_stage_errors_total",
			Help: "Total number of pipeline failures by error category",
		},
		[]string{"stage", "category"},
	)

	m.chunksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "setbreak_chunks_committed_total",
		Help: "Total number of analysis chunks committed",
	})

	m.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "setbreak_active_workers",
		Help: "Number of analysis workers in the current run",
	})

	m.calibrationBeta = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "setbreak_calibration_beta",
			Help: "Loudness regression slope from the last calibration, per score",
		},
		[]string{"score"},
	)

	m.collectors = []prometheus.Collector{
		m.stageOperationsTotal,
		m.stageDuration,
		m.stageErrorsTotal,
		m.chunksTotal,
		m.activeWorkers,
		m.calibrationBeta,
	}
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder.
func (m *PipelineMetrics) RecordOperation(operation, status string) {
	m.stageOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *PipelineMetrics) RecordDuration(operation string, seconds float64) {
	m.stageDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *PipelineMetrics) RecordError(operation, errorType string) {
	m.stageErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordChunk counts one committed chunk.
func (m *PipelineMetrics) RecordChunk() {
	m.chunksTotal.Inc()
}

// SetActiveWorkers sets the worker gauge.
func (m *PipelineMetrics) SetActiveWorkers(n int) {
	m.activeWorkers.Set(float64(n))
}

// SetCalibrationBeta records the fitted slope for a score.
func (m *PipelineMetrics) SetCalibrationBeta(score string, beta float64) {
	m.calibrationBeta.WithLabelValues(score).Set(beta)
}

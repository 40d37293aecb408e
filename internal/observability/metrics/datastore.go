package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for library database access.
type DatastoreMetrics struct {
	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	dbQueryResultSizeHist  *prometheus.HistogramVec

	dbConnectionsActiveGauge prometheus.Gauge
	dbConnectionsIdleGauge   prometheus.Gauge
	dbConnectionsMaxGauge    prometheus.Gauge

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers datastore metrics.
func NewDatastoreMetrics(registry prometheus.Registerer) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setbreak_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "table", "status"},
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "setbreak_db_operation_duration_seconds",
			Help:    "Time taken for database operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"operation", "table"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setbreak_db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	m.dbQueryResultSizeHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "setbreak_db_query_result_size",
			Help:    "Number of rows returned by reporting queries",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, 12),
		},
		[]string{"operation", "table"},
	)

	m.dbConnectionsActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "setbreak_db_connections_active",
		Help: "Connections currently in use",
	})
	m.dbConnectionsIdleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "setbreak_db_connections_idle",
		Help: "Idle connections in the pool",
	})
	m.dbConnectionsMaxGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "setbreak_db_connections_max",
		Help: "Maximum open connections, 0 when unlimited",
	})

	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.dbQueryResultSizeHist,
		m.dbConnectionsActiveGauge,
		m.dbConnectionsIdleGauge,
		m.dbConnectionsMaxGauge,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordDbOperation records a database operation
func (m *DatastoreMetrics) RecordDbOperation(operation, table, status string) {
	m.dbOperationsTotal.WithLabelValues(operation, table, status).Inc()
}

// RecordDbOperationDuration records the duration of a database operation
func (m *DatastoreMetrics) RecordDbOperationDuration(operation, table string, seconds float64) {
	m.dbOperationDuration.WithLabelValues(operation, table).Observe(seconds)
}

// RecordDbOperationError records a database operation error
func (m *DatastoreMetrics) RecordDbOperationError(operation, table, errorType string) {
	m.dbOperationErrorsTotal.WithLabelValues(operation, table, errorType).Inc()
}

// RecordQueryResultSize records the row count of a query.
func (m *DatastoreMetrics) RecordQueryResultSize(operation, table string, rows int) {
	m.dbQueryResultSizeHist.WithLabelValues(operation, table).Observe(float64(rows))
}

// UpdateConnectionMetrics updates the connection pool gauges.
func (m *DatastoreMetrics) UpdateConnectionMetrics(active, idle, maxConn int) {
	m.dbConnectionsActiveGauge.Set(float64(active))
	m.dbConnectionsIdleGauge.Set(float64(idle))
	m.dbConnectionsMaxGauge.Set(float64(maxConn))
}

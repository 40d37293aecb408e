package datastore

import (
	"time"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/observability/metrics"
)

// Metrics is a type alias for metrics.DatastoreMetrics so callers of this
// package do not need to import the metrics package.
type Metrics = metrics.DatastoreMetrics

// SetMetrics enables operation metrics. A nil m disables them.
func (ds *DataStore) SetMetrics(m *Metrics) {
	ds.metrics = m
}

// observe records the outcome and duration of one operation.
func (ds *DataStore) observe(operation, table string, start time.Time, err error) {
	if ds.metrics == nil {
		return
	}
	ds.metrics.RecordDbOperationDuration(operation, table, time.Since(start).Seconds())
	if err != nil {
		ds.metrics.RecordDbOperation(operation, table, metrics.StatusError)
		ds.metrics.RecordDbOperationError(operation, table, errorType(err))
		return
	}
	ds.metrics.RecordDbOperation(operation, table, metrics.StatusSuccess)
	ds.recordPoolStats()
}

func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}

package datastore

import "github.com/lexicone42/setbreak-sub000/internal/logger"

// recordPoolStats copies the connection pool statistics into the
// connection gauges.
func (ds *DataStore) recordPoolStats() {
	if ds.metrics == nil || ds.DB == nil {
		return
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	ds.metrics.UpdateConnectionMetrics(stats.InUse, stats.Idle, stats.MaxOpenConnections)

	if stats.WaitCount > 0 {
		GetLogger().Debug("connection pool experienced waits",
			logger.Int64("wait_count", stats.WaitCount),
			logger.Duration("wait_duration", stats.WaitDuration))
	}
}

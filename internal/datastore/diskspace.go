package datastore

import "github.com/lexicone42/setbreak-sub000/internal/logger"

// lowDiskSpace is the free space below which opening a SQLite library
// warns. Segment rows for a large archive run to hundreds of megabytes.
const lowDiskSpace = 512 << 20

// warnLowDiskSpace logs when the volume holding dir is nearly full. It
// reports whether a warning was written.
func warnLowDiskSpace(dir string, threshold uint64) bool {
	free, err := freeSpace(dir)
	if err != nil {
		GetLogger().Debug("could not determine free disk space",
			logger.String("path", dir),
			logger.Error(err))
		return false
	}
	if free >= threshold {
		return false
	}
	GetLogger().Warn("low disk space for library database",
		logger.String("path", dir),
		logger.Uint64("free_bytes", free),
		logger.Uint64("threshold_bytes", threshold))
	return true
}

package analysis

import "github.com/lexicone42/setbreak-sub000/internal/logger"

// GetLogger returns the analysis module logger. It is resolved on each
// call so it follows logger.SetGlobal.
func GetLogger() logger.Logger {
	return logger.Global().Module("analysis")
}

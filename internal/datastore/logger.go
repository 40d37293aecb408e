package datastore

import "github.com/lexicone42/setbreak-sub000/internal/logger"

// GetLogger returns the datastore module logger. It is resolved from the
// global logger on each call so it follows logger.SetGlobal.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

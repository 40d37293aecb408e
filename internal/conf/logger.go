// Package conf provides configuration management for setbreak.
package conf

import "github.com/lexicone42/setbreak-sub000/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched from the global logger each time so it follows SetGlobal.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}

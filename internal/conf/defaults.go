// defaults.go: default values for every configuration key
package conf

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// setDefaultConfig registers the default value of every config key on v.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Storage
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite.path", defaultDatabasePath())
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.passwordfile", "")
	v.SetDefault("database.mysql.database", AppName)
	v.SetDefault("database.debug", false)

	// Batch analysis
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("analysis.chunkfactor", DefaultChunkFactor)
	v.SetDefault("analysis.progress", true)

	// Decoding
	v.SetDefault("decoder.ffmpegpath", "")
	v.SetDefault("decoder.tempdir", "")

	// Calibration
	v.SetDefault("calibration.betathreshold", DefaultBetaThreshold)
	v.SetDefault("calibration.minpoints", DefaultCalibrationMinPoints)

	// Scanning
	v.SetDefault("scanner.extensions", SupportedExtensions)
	v.SetDefault("scanner.bands", []string{})

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", filepath.Join("logs", AppName+".log"))
	v.SetDefault("logging.file.level", "info")
	v.SetDefault("logging.modulelevels", map[string]string{})

	// Telemetry
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.dsnfile", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9464")
}

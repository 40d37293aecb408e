// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateAnalysisSettings(&settings.Analysis); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateCalibrationSettings(&settings.Calibration); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateScannerSettings(&settings.Scanner); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateLogSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}
	if settings.Metrics.Enabled && settings.Metrics.Listen == "" {
		ve.Errors = append(ve.Errors, "metrics are enabled but no listen address is configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(db *DatabaseSettings) error {
	switch db.Type {
	case "sqlite":
		if db.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path must be set")
		}
	case "mysql":
		var missing []string
		if db.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if db.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if db.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if len(missing) > 0 {
			return fmt.Errorf("database.mysql is missing %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("database.type must be sqlite or mysql, got %q", db.Type)
	}
	return nil
}

func validateAnalysisSettings(a *AnalysisSettings) error {
	if a.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}
	if a.ChunkFactor < 1 {
		return fmt.Errorf("analysis.chunkfactor must be at least 1")
	}
	return nil
}

func validateCalibrationSettings(c *CalibrationSettings) error {
	if c.BetaThreshold < 0 {
		return fmt.Errorf("calibration.betathreshold must not be negative")
	}
	if c.MinPoints < 2 {
		return fmt.Errorf("calibration.minpoints must be at least 2")
	}
	return nil
}

func validateScannerSettings(s *ScannerSettings) error {
	for _, ext := range s.Extensions {
		if !slices.Contains(SupportedExtensions, strings.ToLower(strings.TrimPrefix(ext, "."))) {
			return fmt.Errorf("scanner.extensions contains unsupported extension %q", ext)
		}
	}
	return nil
}

func validateLogSettings(l *LogSettings) error {
	if !isValidLogLevel(l.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", l.Level)
	}
	for module, level := range l.ModuleLevels {
		if !isValidLogLevel(level) {
			return fmt.Errorf("logging.modulelevels.%s %q is not a valid level", module, level)
		}
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

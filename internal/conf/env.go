// env.go: environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"database.type", "SETBREAK_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "SETBREAK_DB_PATH", nil},
		{"database.mysql.host", "SETBREAK_MYSQL_HOST", nil},
		{"database.mysql.port", "SETBREAK_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "SETBREAK_MYSQL_USERNAME", nil},
		{"database.mysql.password", "SETBREAK_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "SETBREAK_MYSQL_DATABASE", nil},

		{"analysis.workers", "SETBREAK_WORKERS", validateEnvPositiveInt},
		{"decoder.ffmpegpath", "SETBREAK_FFMPEG", nil},

		{"logging.level", "SETBREAK_LOG_LEVEL", validateEnvLogLevel},
		{"sentry.dsn", "SETBREAK_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case "sqlite", "mysql":
		return nil
	}
	return fmt.Errorf("must be sqlite or mysql")
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !isValidLogLevel(value) {
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
	return nil
}

// configureEnvironmentVariables enables SETBREAK_ prefixed overrides for
// every key plus the explicit bindings above.
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return bindEnvVars(v)
}

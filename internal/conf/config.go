// config.go: settings structure and loading
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lexicone42/setbreak-sub000/internal/logger"
	"github.com/lexicone42/setbreak-sub000/internal/secrets"
)

// Settings is the root configuration. It is built once by Load and passed
// explicitly to every component that needs it.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Database    DatabaseSettings    `yaml:"database" mapstructure:"database"`
	Analysis    AnalysisSettings    `yaml:"analysis" mapstructure:"analysis"`
	Decoder     DecoderSettings     `yaml:"decoder" mapstructure:"decoder"`
	Calibration CalibrationSettings `yaml:"calibration" mapstructure:"calibration"`
	Scanner     ScannerSettings     `yaml:"scanner" mapstructure:"scanner"`
	Logging     LogSettings         `yaml:"logging" mapstructure:"logging"`
	Sentry      SentrySettings      `yaml:"sentry" mapstructure:"sentry"`
	Metrics     MetricsSettings     `yaml:"metrics" mapstructure:"metrics"`

	// ConfigFile is the file the settings were read from, empty for pure defaults
	ConfigFile string `yaml:"-" mapstructure:"-"`
}

// DatabaseSettings selects and configures the storage backend
type DatabaseSettings struct {
	Type   string         `yaml:"type" mapstructure:"type"` // sqlite or mysql
	SQLite SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
	Debug  bool           `yaml:"debug" mapstructure:"debug"` // log every SQL statement at trace level
}

// SQLiteSettings contains settings for the SQLite database
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings contains settings for the MySQL database
type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"` // may reference ${ENV_VAR}
	// PasswordFile is read instead of Password when set, e.g. /run/secrets/mysql
	PasswordFile string `yaml:"passwordfile" mapstructure:"passwordfile"`
	Database string `yaml:"database" mapstructure:"database"`
}

// AnalysisSettings controls the batch orchestrator
type AnalysisSettings struct {
	Workers     int  `yaml:"workers" mapstructure:"workers"`         // 0 picks a CPU based default
	ChunkFactor int  `yaml:"chunkfactor" mapstructure:"chunkfactor"` // chunk size = workers * chunkfactor
	Progress    bool `yaml:"progress" mapstructure:"progress"`       // draw a progress bar on stderr
}

// DecoderSettings controls audio decoding
type DecoderSettings struct {
	FFmpegPath string `yaml:"ffmpegpath" mapstructure:"ffmpegpath"` // explicit ffmpeg binary, PATH lookup when empty
	TempDir    string `yaml:"tempdir" mapstructure:"tempdir"`       // transcode scratch dir, os.TempDir when empty
}

// CalibrationSettings controls the loudness bias correction pass
type CalibrationSettings struct {
	BetaThreshold float64 `yaml:"betathreshold" mapstructure:"betathreshold"`
	MinPoints     int     `yaml:"minpoints" mapstructure:"minpoints"`
}

// ScannerSettings controls library scanning
type ScannerSettings struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
	Bands      []string `yaml:"bands" mapstructure:"bands"` // extra band names on top of the built-in registry
}

// LogSettings is the YAML facing logging configuration
type LogSettings struct {
	Level        string            `yaml:"level" mapstructure:"level"`
	Timezone     string            `yaml:"timezone" mapstructure:"timezone"`
	File         LogFileSettings   `yaml:"file" mapstructure:"file"`
	ModuleLevels map[string]string `yaml:"modulelevels" mapstructure:"modulelevels"`
}

// LogFileSettings configures the JSON log file
type LogFileSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
	Level   string `yaml:"level" mapstructure:"level"`
}

// SentrySettings configures optional error telemetry
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	DSNFile string `yaml:"dsnfile" mapstructure:"dsnfile"`
}

// MetricsSettings configures the Prometheus endpoint used during long runs
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

// LoggerConfig converts the logging settings into the logger package format.
func (s *Settings) LoggerConfig() *logger.LoggingConfig {
	level := s.Logging.Level
	if s.Debug {
		level = "debug"
	}
	return &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Logging.Timezone,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: level},
		FileOutput: &logger.FileOutput{
			Enabled: s.Logging.File.Enabled,
			Path:    s.Logging.File.Path,
			Level:   s.Logging.File.Level,
		},
		ModuleLevels: s.Logging.ModuleLevels,
	}
}

// FlagBinding binds a command line flag to a config key so the flag wins
// over file and environment values when set.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// Load reads settings from configFile, or from the default search paths when
// configFile is empty, then applies environment variables and flag bindings.
// A missing default config file is created from the defaults.
func Load(configFile string, flags ...FlagBinding) (*Settings, error) {
	v := viper.New()

	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	for _, fb := range flags {
		if fb.Flag == nil {
			continue
		}
		if err := v.BindPFlag(fb.Key, fb.Flag); err != nil {
			return nil, fmt.Errorf("error binding flag %s: %w", fb.Key, err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = v.ConfigFileUsed()
	applyDerivedDefaults(settings)

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// Defaults returns settings built only from default values. Tests and
// embedders use it instead of touching the filesystem.
func Defaults() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		// defaults are static; failing here is a programming error
		panic(fmt.Sprintf("conf: unmarshal defaults: %v", err))
	}
	applyDerivedDefaults(settings)
	return settings
}

// resolveSecrets replaces credential settings with their file or
// environment values.
func resolveSecrets(settings *Settings) error {
	mysql := &settings.Database.MySQL
	password, err := secrets.Resolve(mysql.PasswordFile, mysql.Password)
	if err != nil {
		return fmt.Errorf("error resolving database.mysql.password: %w", err)
	}
	mysql.Password = password

	dsn, err := secrets.Resolve(settings.Sentry.DSNFile, settings.Sentry.DSN)
	if err != nil {
		return fmt.Errorf("error resolving sentry.dsn: %w", err)
	}
	settings.Sentry.DSN = dsn
	return nil
}

func applyDerivedDefaults(settings *Settings) {
	if settings.Analysis.Workers <= 0 {
		settings.Analysis.Workers = DefaultWorkers()
	}
	if settings.Analysis.ChunkFactor <= 0 {
		settings.Analysis.ChunkFactor = DefaultChunkFactor
	}
}

func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		GetLogger().Warn("environment variable issues", logger.Error(err))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	err = v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(v, configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the defaults to dir/config.yaml and reads it back.
func createDefaultConfig(v *viper.Viper, dir string) error {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	configPath := filepath.Join(dir, ConfigName+".yaml")
	if err := SaveYAMLConfig(configPath, settings); err != nil {
		return err
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	v.SetConfigFile(configPath)
	return v.ReadInConfig()
}

// SaveYAMLConfig writes settings to configPath atomically via a temp file.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		// rename fails across devices, fall back to copy & delete
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}

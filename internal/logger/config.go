package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" mapstructure:"defaultlevel"` // default log level for all modules
	Timezone     string            `yaml:"timezone" mapstructure:"timezone"`          // "Local", "UTC" or an IANA name
	Console      *ConsoleOutput    `yaml:"console" mapstructure:"console"`
	FileOutput   *FileOutput       `yaml:"file_output" mapstructure:"fileoutput"`
	ModuleLevels map[string]string `yaml:"module_levels" mapstructure:"modulelevels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output is human-readable text on stderr so it never mixes with
// command output written to stdout.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration. File output is JSON.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
	Level   string `yaml:"level" mapstructure:"level"`
}

const (
	DefaultLogLevel = "info"
	DefaultLogPath  = "logs/setbreak.log"
)

// applyConfigDefaults fills nil sections so a partial config still logs to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{Enabled: true, Level: cfg.DefaultLevel}
	}
	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{Enabled: false, Path: DefaultLogPath, Level: cfg.DefaultLevel}
	}
	if cfg.ModuleLevels == nil {
		cfg.ModuleLevels = make(map[string]string)
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// Dir is the per-repository directory holding config, suppressions and the database.
	Dir = ".apiguard"
	// FileName is the config file inside Dir.
	FileName = "config.toml"
	// EnvPrefix prefixes environment overrides, e.g. APIGUARD_LOGGING_LEVEL.
	EnvPrefix = "APIGUARD"

	// CurrentVersion is the config schema version written by Save.
	CurrentVersion = 1
)

// Config represents the complete apiguard configuration
type Config struct {
	Version int `json:"version" toml:"version" mapstructure:"version"`

	Logging      LoggingConfig      `json:"logging" toml:"logging" mapstructure:"logging"`
	Analysis     AnalysisConfig     `json:"analysis" toml:"analysis" mapstructure:"analysis"`
	Storage      StorageConfig      `json:"storage" toml:"storage" mapstructure:"storage"`
	Consumers    ConsumersConfig    `json:"consumers" toml:"consumers" mapstructure:"consumers"`
	Suppressions SuppressionsConfig `json:"suppressions" toml:"suppressions" mapstructure:"suppressions"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" toml:"level" mapstructure:"level"`
	Format string `json:"format" toml:"format" mapstructure:"format"` // human or json
	// File, when set, receives a copy of every record at Level, rotated by size.
	File       string `json:"file" toml:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" toml:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" toml:"maxBackups" mapstructure:"maxBackups"`
}

// AnalysisConfig bounds the per-file pipeline
type AnalysisConfig struct {
	Concurrency  int   `json:"concurrency" toml:"concurrency" mapstructure:"concurrency"`
	MaxFileBytes int64 `json:"maxFileBytes" toml:"maxFileBytes" mapstructure:"maxFileBytes"`
	// Include and Exclude are doublestar globs over diff file paths. An empty Include keeps everything.
	Include []string `json:"include" toml:"include" mapstructure:"include"`
	Exclude []string `json:"exclude" toml:"exclude" mapstructure:"exclude"`
}

// StorageConfig contains snapshot database configuration
type StorageConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" toml:"path" mapstructure:"path"`
}

// ConsumersConfig contains consumer scanner configuration
type ConsumersConfig struct {
	Enabled    bool     `json:"enabled" toml:"enabled" mapstructure:"enabled"`
	Root       string   `json:"root" toml:"root" mapstructure:"root"`
	Include    []string `json:"include" toml:"include" mapstructure:"include"`
	Exclude    []string `json:"exclude" toml:"exclude" mapstructure:"exclude"`
	MaxFiles   int      `json:"maxFiles" toml:"maxFiles" mapstructure:"maxFiles"`
	SourceRepo string   `json:"sourceRepo" toml:"sourceRepo" mapstructure:"sourceRepo"`
}

// SuppressionsConfig points at the suppressions file
type SuppressionsConfig struct {
	Path string `json:"path" toml:"path" mapstructure:"path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "human",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Analysis: AnalysisConfig{
			Concurrency:  4,
			MaxFileBytes: 2 << 20,
			Include:      []string{},
			Exclude:      []string{"**/vendor/**", "**/node_modules/**", "**/testdata/**"},
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    filepath.Join(Dir, "apiguard.db"),
		},
		Consumers: ConsumersConfig{
			Enabled:  false,
			Root:     ".",
			Include:  []string{"**/*.{ts,tsx,js,jsx,mjs,py,go,java,kt,cs,rb}"},
			Exclude:  []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**"},
			MaxFiles: 5000,
		},
		Suppressions: SuppressionsConfig{
			Path: filepath.Join(Dir, "suppressions.toml"),
		},
	}
}

// Path returns the config file location for a repository root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, FileName)
}

// LoadConfig loads configuration from .apiguard/config.toml and applies APIGUARD_* overrides.
// A missing file yields the defaults (still subject to environment overrides).
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(repoRoot, Dir))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read %s: %w", Path(repoRoot), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Path(repoRoot), err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)

	v.SetDefault("analysis.concurrency", d.Analysis.Concurrency)
	v.SetDefault("analysis.maxFileBytes", d.Analysis.MaxFileBytes)
	v.SetDefault("analysis.include", d.Analysis.Include)
	v.SetDefault("analysis.exclude", d.Analysis.Exclude)

	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("consumers.enabled", d.Consumers.Enabled)
	v.SetDefault("consumers.root", d.Consumers.Root)
	v.SetDefault("consumers.include", d.Consumers.Include)
	v.SetDefault("consumers.exclude", d.Consumers.Exclude)
	v.SetDefault("consumers.maxFiles", d.Consumers.MaxFiles)
	v.SetDefault("consumers.sourceRepo", d.Consumers.SourceRepo)

	v.SetDefault("suppressions.path", d.Suppressions.Path)
}

// Save writes the configuration to .apiguard/config.toml
func (c *Config) Save(repoRoot string) error {
	if err := os.MkdirAll(filepath.Join(repoRoot, Dir), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(Path(repoRoot), data, 0644)
}

// Resolve anchors a configured path at repoRoot unless it is already absolute.
func Resolve(repoRoot, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats = map[string]bool{"human": true, "json": true}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if !validFormats[c.Logging.Format] {
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("must be human or json, got %q", c.Logging.Format)}
	}
	if c.Logging.MaxSize != "" {
		if _, err := humanize.ParseBytes(c.Logging.MaxSize); err != nil {
			return &ConfigError{Field: "logging.maxSize", Message: fmt.Sprintf("invalid size %q", c.Logging.MaxSize)}
		}
	}
	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.maxBackups", Message: "must not be negative"}
	}
	if c.Analysis.Concurrency < 1 {
		return &ConfigError{Field: "analysis.concurrency", Message: "must be at least 1"}
	}
	if c.Analysis.MaxFileBytes <= 0 {
		return &ConfigError{Field: "analysis.maxFileBytes", Message: "must be positive"}
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return &ConfigError{Field: "storage.path", Message: "required when storage is enabled"}
	}
	if c.Consumers.MaxFiles < 0 {
		return &ConfigError{Field: "consumers.maxFiles", Message: "must not be negative"}
	}

	globs := []struct {
		field    string
		patterns []string
	}{
		{"analysis.include", c.Analysis.Include},
		{"analysis.exclude", c.Analysis.Exclude},
		{"consumers.include", c.Consumers.Include},
		{"consumers.exclude", c.Consumers.Exclude},
	}
	for _, g := range globs {
		for _, p := range g.patterns {
			if !doublestar.ValidatePattern(p) {
				return &ConfigError{Field: g.field, Message: fmt.Sprintf("invalid glob %q", p)}
			}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "human" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Analysis.Concurrency < 1 {
		t.Error("Concurrency should be at least 1")
	}
	if cfg.Analysis.MaxFileBytes <= 0 {
		t.Error("MaxFileBytes should be positive")
	}
	if !cfg.Storage.Enabled {
		t.Error("storage should be enabled by default")
	}
	if cfg.Storage.Path != filepath.Join(".apiguard", "apiguard.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Consumers.Enabled {
		t.Error("consumer scanning should be opt-in")
	}
	if cfg.Suppressions.Path != filepath.Join(".apiguard", "suppressions.toml") {
		t.Errorf("Suppressions.Path = %q", cfg.Suppressions.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad version", func(c *Config) { c.Version = 7 }, "version"},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"level case-insensitive", func(c *Config) { c.Logging.Level = "DEBUG" }, ""},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.maxBackups"},
		{"bad max size", func(c *Config) { c.Logging.MaxSize = "ten megs" }, "logging.maxSize"},
		{"zero concurrency", func(c *Config) { c.Analysis.Concurrency = 0 }, "analysis.concurrency"},
		{"zero size limit", func(c *Config) { c.Analysis.MaxFileBytes = 0 }, "analysis.maxFileBytes"},
		{"storage without path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"disabled storage without path", func(c *Config) { c.Storage.Enabled = false; c.Storage.Path = "" }, ""},
		{"negative max files", func(c *Config) { c.Consumers.MaxFiles = -5 }, "consumers.maxFiles"},
		{"bad include glob", func(c *Config) { c.Analysis.Include = []string{"src/[a-"} }, "analysis.include"},
		{"bad consumer glob", func(c *Config) { c.Consumers.Exclude = []string{"{web"} }, "consumers.exclude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "analysis.concurrency", Message: "must be at least 1"}
	want := "config error in field 'analysis.concurrency': must be at least 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := DefaultConfig()
	if cfg.Version != want.Version || cfg.Analysis.Concurrency != want.Analysis.Concurrency || cfg.Storage.Path != want.Storage.Path {
		t.Errorf("missing config file should give defaults, got %+v", cfg)
	}
	if len(cfg.Consumers.Include) != len(want.Consumers.Include) {
		t.Errorf("Consumers.Include = %v", cfg.Consumers.Include)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, Dir), 0755); err != nil {
		t.Fatal(err)
	}

	content := `version = 1

[logging]
level = "debug"

[analysis]
concurrency = 8
exclude = ["legacy/**"]

[consumers]
enabled = true
root = "../web"
maxFiles = 100
`
	if err := os.WriteFile(Path(tmpDir), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "human" {
		t.Errorf("unset keys should keep defaults, Logging.Format = %q", cfg.Logging.Format)
	}
	if cfg.Analysis.Concurrency != 8 {
		t.Errorf("Analysis.Concurrency = %d, want 8", cfg.Analysis.Concurrency)
	}
	if len(cfg.Analysis.Exclude) != 1 || cfg.Analysis.Exclude[0] != "legacy/**" {
		t.Errorf("Analysis.Exclude = %v", cfg.Analysis.Exclude)
	}
	if !cfg.Consumers.Enabled || cfg.Consumers.Root != "../web" || cfg.Consumers.MaxFiles != 100 {
		t.Errorf("Consumers = %+v", cfg.Consumers)
	}
	if !cfg.Storage.Enabled {
		t.Error("Storage.Enabled should keep its default")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("APIGUARD_LOGGING_LEVEL", "error")
	t.Setenv("APIGUARD_ANALYSIS_CONCURRENCY", "2")
	t.Setenv("APIGUARD_STORAGE_ENABLED", "false")

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error", cfg.Logging.Level)
	}
	if cfg.Analysis.Concurrency != 2 {
		t.Errorf("Analysis.Concurrency = %d, want 2", cfg.Analysis.Concurrency)
	}
	if cfg.Storage.Enabled {
		t.Error("Storage.Enabled should be overridden to false")
	}
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, Dir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(tmpDir), []byte("[logging\nlevel = "), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(tmpDir); err == nil {
		t.Error("LoadConfig() should fail on malformed TOML")
	}
}

func TestConfig_Save(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Analysis.MaxFileBytes = 4096
	cfg.Consumers.SourceRepo = "acme/web"
	cfg.Consumers.Exclude = []string{"**/fixtures/**"}

	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(Path(tmpDir))
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if !strings.Contains(string(data), "[analysis]") {
		t.Errorf("saved file should be TOML with an [analysis] table:\n%s", data)
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() after save error = %v", err)
	}
	if loaded.Analysis.MaxFileBytes != 4096 {
		t.Errorf("MaxFileBytes = %d, want 4096", loaded.Analysis.MaxFileBytes)
	}
	if loaded.Consumers.SourceRepo != "acme/web" {
		t.Errorf("SourceRepo = %q", loaded.Consumers.SourceRepo)
	}
	if len(loaded.Consumers.Exclude) != 1 || loaded.Consumers.Exclude[0] != "**/fixtures/**" {
		t.Errorf("Consumers.Exclude = %v", loaded.Consumers.Exclude)
	}
}

func TestResolve(t *testing.T) {
	abs := filepath.Join(string(filepath.Separator), "var", "db")
	tests := []struct {
		root, p, want string
	}{
		{"/repo", ".apiguard/apiguard.db", filepath.Join("/repo", ".apiguard/apiguard.db")},
		{"/repo", abs, abs},
		{"/repo", "", ""},
	}
	for _, tt := range tests {
		if got := Resolve(tt.root, tt.p); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.root, tt.p, got, tt.want)
		}
	}
}

// Package config provides configuration loading for estimatord.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. See LoadWithFile for precedence and security rules.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the complete estimatord configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Estimator EstimatorConfig `koanf:"estimator"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	MaxUploadBytes  int64    `koanf:"max_upload_bytes"`
}

// StorageConfig holds filesystem and database paths.
//
// ProjectsDir, ScopeConfigDir and DatabasePath default to locations under
// DataDir; set them explicitly to split storage across filesystems.
type StorageConfig struct {
	DataDir        string `koanf:"data_dir"`
	ProjectsDir    string `koanf:"projects_dir"`
	ScopeConfigDir string `koanf:"scope_config_dir"`
	DatabasePath   string `koanf:"database_path"`
}

// EnsureDirs creates the storage directories if they do not exist.
func (s StorageConfig) EnsureDirs() error {
	for _, dir := range []string{s.ProjectsDir, s.ScopeConfigDir, filepath.Dir(s.DatabasePath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// EstimatorConfig holds estimation pipeline configuration.
type EstimatorConfig struct {
	// Provider selects the estimation backend: "gemini", "openai" or
	// "heuristic". A gemini/openai provider without an API key degrades
	// to heuristic at startup.
	Provider string `koanf:"provider"`
	// Model overrides automatic model selection.
	Model             string   `koanf:"model"`
	APIKey            Secret   `koanf:"api_key"`
	BaseURL           string   `koanf:"base_url"`
	Timeout           Duration `koanf:"timeout"`
	MaxRetries        int      `koanf:"max_retries"`
	RequestsPerMinute float64  `koanf:"requests_per_minute"`
	// RulesPath points to an optional TOML file with heuristic sizing
	// rules. Built-in defaults apply when unset or missing.
	RulesPath        string `koanf:"rules_path"`
	MaxDocumentChars int    `koanf:"max_document_chars"`
}

// LoggingConfig holds the logging section. The daemon translates it
// into an internal/logging.Config with the level parsed.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// File receives log output in addition to (or instead of) stdout.
	// The console always logs to a file: stdout belongs to the TUI.
	File   string `koanf:"file"`
	Stdout bool   `koanf:"stdout"`
}

// Estimation providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderHeuristic = "heuristic"
)

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 16 * 1024 * 1024
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "."
	}
	if cfg.Storage.ProjectsDir == "" {
		cfg.Storage.ProjectsDir = filepath.Join(cfg.Storage.DataDir, "projects")
	}
	if cfg.Storage.ScopeConfigDir == "" {
		cfg.Storage.ScopeConfigDir = filepath.Join(cfg.Storage.DataDir, "scope_config")
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join(cfg.Storage.DataDir, "estimator.db")
	}

	if cfg.Estimator.Provider == "" {
		cfg.Estimator.Provider = ProviderGemini
	}
	// GEMINI_API_KEY is honored for compatibility with existing
	// deployments; the estimator section takes precedence.
	if !cfg.Estimator.APIKey.IsSet() {
		cfg.Estimator.APIKey = Secret(os.Getenv("GEMINI_API_KEY"))
	}
	if cfg.Estimator.Timeout == 0 {
		cfg.Estimator.Timeout = Duration(60 * time.Second)
	}
	if cfg.Estimator.MaxRetries == 0 {
		cfg.Estimator.MaxRetries = 3
	}
	if cfg.Estimator.RequestsPerMinute == 0 {
		cfg.Estimator.RequestsPerMinute = 50
	}
	if cfg.Estimator.MaxDocumentChars == 0 {
		cfg.Estimator.MaxDocumentChars = 20000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir cannot be empty")
	}

	switch c.Estimator.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderHeuristic:
	default:
		return fmt.Errorf("unknown estimator provider: %q (must be gemini, openai or heuristic)", c.Estimator.Provider)
	}
	if c.Estimator.RequestsPerMinute <= 0 {
		return fmt.Errorf("estimator requests_per_minute must be positive")
	}
	if c.Estimator.MaxRetries < 0 {
		return fmt.Errorf("estimator max_retries must be >= 0")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	return nil
}

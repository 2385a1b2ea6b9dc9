// Package config handles bridge configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// StorageConfig holds the settings for reaching the columnar storage service.
type StorageConfig struct {
	Addr     string        // Flight SQL address of the storage service (host:port)
	Disabled bool          // integration switched off at startup
	Timeout  time.Duration // per-call timeout for schema discovery (default 30s)
	Insecure bool          // plaintext gRPC (default true outside production)
}

// Validate checks that the storage configuration is usable when enabled.
func (s *StorageConfig) Validate() error {
	if s.Disabled {
		return nil
	}
	if s.Addr == "" {
		return fmt.Errorf("STORAGE_ADDR is required unless STORAGE_DISABLED=true")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must not be negative")
	}
	return nil
}

// Config holds the configuration for the bridge binaries.
type Config struct {
	Storage    StorageConfig
	DuckDBPath string // DuckDB database file for the engine side ("" = in-memory)
	ListenAddr string // listen address for the dev storage service (default ":31337")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables and
// validates it.
func LoadFromEnv() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables and applies
// defaults without validating, so callers can layer overrides first.
func FromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			Addr:     strings.TrimSpace(os.Getenv("STORAGE_ADDR")),
			Disabled: parseBoolEnvDefault("STORAGE_DISABLED", false),
		},
		DuckDBPath: os.Getenv("DUCKDB_PATH"),
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		Env:        os.Getenv("ENV"),
	}

	if v := os.Getenv("STORAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid STORAGE_TIMEOUT %q", v))
		} else {
			cfg.Storage.Timeout = d
		}
	}
	cfg.Storage.Insecure = parseBoolEnvDefault("STORAGE_INSECURE", !cfg.IsProduction())

	cfg.ApplyDefaults()
	if cfg.Storage.Disabled {
		cfg.Warnings = append(cfg.Warnings, "storage integration disabled by STORAGE_DISABLED")
	}
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Storage.Timeout == 0 {
		c.Storage.Timeout = 30 * time.Second
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":31337"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the storage settings and the production transport rule.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	// Production mode: insecure transport is a fatal error.
	if c.IsProduction() && c.Storage.Insecure && !c.Storage.Disabled {
		return fmt.Errorf("STORAGE_INSECURE=true is not allowed in production (ENV=production)")
	}
	return nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

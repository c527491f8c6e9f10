// Package config provides environment-driven configuration for brain.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Config holds all application configuration values.
type Config struct {
	DBPath      string
	StorageRoot string
	RulesPath   string
	LogLevel    string
	LogFormat   string
	MetricsFile string
}

// Load reads configuration from environment variables with defaults under
// the user's home directory.
func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".brain")

	cfg := &Config{
		DBPath:      envOrDefault("BRAIN_DB", filepath.Join(base, "brain.db")),
		StorageRoot: envOrDefault("BRAIN_STORAGE", filepath.Join(base, "storage")),
		RulesPath:   envOrDefault("BRAIN_RULES", ""),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "text"),
		MetricsFile: envOrDefault("BRAIN_METRICS_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Logger builds the process logger. Load has already validated level and format.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("BRAIN_DB is required")
	}

	if c.StorageRoot == "" {
		return fmt.Errorf("BRAIN_STORAGE is required")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.LogLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

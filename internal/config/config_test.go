package config_test

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/malegalny/Brain/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BRAIN_DB", "BRAIN_STORAGE", "BRAIN_RULES", "LOG_LEVEL", "LOG_FORMAT", "BRAIN_METRICS_FILE"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.HasSuffix(cfg.DBPath, "brain.db") {
		t.Errorf("expected default db path ending in brain.db, got %s", cfg.DBPath)
	}

	if !strings.HasSuffix(cfg.StorageRoot, "storage") {
		t.Errorf("expected default storage root ending in storage, got %s", cfg.StorageRoot)
	}

	if cfg.RulesPath != "" || cfg.MetricsFile != "" {
		t.Errorf("expected empty optional paths, got %q and %q", cfg.RulesPath, cfg.MetricsFile)
	}

	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("expected info/text, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BRAIN_DB", "/tmp/x.db")
	t.Setenv("BRAIN_STORAGE", "/tmp/store")
	t.Setenv("BRAIN_RULES", "/tmp/rules.yaml")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.DBPath != "/tmp/x.db" || cfg.StorageRoot != "/tmp/store" || cfg.RulesPath != "/tmp/rules.yaml" {
		t.Errorf("unexpected paths %+v", cfg)
	}

	log := cfg.Logger()
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", log.GetLevel())
	}

	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("expected JSON formatter, got %T", log.Formatter)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "loud")

	_, err := config.Load()
	if err == nil || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Fatalf("expected LOG_LEVEL error, got %v", err)
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_FORMAT", "xml")

	_, err := config.Load()
	if err == nil || !strings.Contains(err.Error(), "LOG_FORMAT") {
		t.Fatalf("expected LOG_FORMAT error, got %v", err)
	}
}

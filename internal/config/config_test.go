package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := Defaults()
	cfg.Pipeline.Strategy = "round-robin"
	if err := Validate(&cfg); err == nil {
		t.Fatal("expected validation error for unknown strategy")
	}
}

func TestValidateRejectsOutOfRangeParallelism(t *testing.T) {
	cfg := Defaults()
	cfg.Pipeline.MaxAnalysisParallelism = 0
	if err := Validate(&cfg); err == nil {
		t.Fatal("expected validation error for zero parallelism")
	}
}

func TestValidateRequiresHistoryDBPathWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.History.Enabled = true
	cfg.History.DBPath = ""
	if err := Validate(&cfg); err == nil {
		t.Fatal("expected validation error for empty history db path when enabled")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Observability.LogLevel = "verbose"
	if err := Validate(&cfg); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner111.yaml")
	yamlContent := "schema_version: \"1\"\npipeline:\n  max_analysis_parallelism: 8\nobservability:\n  log_level: debug\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected Load to succeed, got %v", err)
	}
	if cfg.Pipeline.MaxAnalysisParallelism != 8 {
		t.Fatalf("expected overridden max_analysis_parallelism=8, got %d", cfg.Pipeline.MaxAnalysisParallelism)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Fatalf("expected overridden log_level=debug, got %q", cfg.Observability.LogLevel)
	}
	if cfg.Pipeline.BoundedCapacity != 64 {
		t.Fatalf("expected default bounded_capacity=64 to survive merge, got %d", cfg.Pipeline.BoundedCapacity)
	}
}

func TestLoadFailsOnInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner111.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  strategy: bogus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject an invalid config")
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected Load to fail for a missing file")
	}
}

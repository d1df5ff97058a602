// Package config provides configuration loading, validation, and defaults
// for the Scanner111 engine.
//
// Configuration file: scanner111.yaml (path supplied by the caller)
// Schema version: 1
//
// Validation:
//   - All required fields must be present.
//   - Numeric ranges enforced (worker counts, TTLs, thresholds).
//   - Invalid config on load: caller refuses to start (fatal error).
//
// Hot-reload classification (conceptual only — the engine itself does
// not watch the file; a CLI/UI collaborator owns that loop):
//   - Non-destructive: CacheTTL, LogLevel, LogFormat, RetryPolicy,
//     RateLimit, MaxAnalysisParallelism.
//   - Destructive (requires restart): History.DBPath, MetricsAddr.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version, GitCommit, BuildTime are injected at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root configuration structure for the Scanner111 engine.
// All fields have defaults; see Defaults() for values.
type Config struct {
	// SchemaVersion must be "1". Future versions will trigger migration.
	SchemaVersion string `yaml:"schema_version"`

	// Pipeline configures the analysis pipeline orchestrator.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Cache configures validation/discovery cache TTLs.
	Cache CacheConfig `yaml:"cache"`

	// AsyncToolkit configures retry, rate-limit, and circuit-breaker defaults.
	AsyncToolkit AsyncToolkitConfig `yaml:"async_toolkit"`

	// History configures the optional scan-history ledger.
	History HistoryConfig `yaml:"history"`

	// Observability configures metrics and logging.
	Observability ObservabilityConfig `yaml:"observability"`

	// Rules points at optional rule-table overrides for the INI/TOML
	// config validators.
	Rules RulesConfig `yaml:"rules"`
}

// PipelineConfig holds orchestrator-level operational parameters.
type PipelineConfig struct {
	// Strategy selects the execution strategy: "sequential", "parallel",
	// "prioritized", or "batched". Default: prioritized.
	Strategy string `yaml:"strategy"`

	// MaxAnalysisParallelism caps concurrent analyzers within one
	// priority group. Default: 4.
	MaxAnalysisParallelism int `yaml:"max_analysis_parallelism"`

	// GlobalTimeout bounds any analyzer invocation lacking its own
	// Timeout(). Default: 30s.
	GlobalTimeout time.Duration `yaml:"global_timeout"`

	// BoundedCapacity sizes the Load->Analyze queue, the orchestrator's
	// sole backpressure mechanism. Default: 64.
	BoundedCapacity int `yaml:"bounded_capacity"`

	// ContinueOnError keeps a request alive after one analyzer fails.
	// Default: true.
	ContinueOnError bool `yaml:"continue_on_error"`

	// BatchSize groups requests for the Batched strategy. Default: 8.
	BatchSize int `yaml:"batch_size"`
}

// CacheConfig holds TTLs for the path-validation and game-discovery
// caches (spec section 4.6). A zero TTL disables caching for that cache.
type CacheConfig struct {
	// PathValidationTTL is the TTL for validated-path cache entries.
	// Default: 2m.
	PathValidationTTL time.Duration `yaml:"path_validation_ttl"`

	// GameDiscoveryTTL is the TTL for discovered game/documents paths,
	// keyed per (gameName, VR-flag). Default: 5m.
	GameDiscoveryTTL time.Duration `yaml:"game_discovery_ttl"`

	// ConfigFileCacheEnabled toggles the INI validator's per-file parse
	// cache. Default: true.
	ConfigFileCacheEnabled bool `yaml:"config_file_cache_enabled"`
}

// AsyncToolkitConfig holds default policies for the async coordination
// toolkit, overridable per call site.
type AsyncToolkitConfig struct {
	// RetryPreset selects "default", "aggressive", or "conservative".
	// Default: "default".
	RetryPreset string `yaml:"retry_preset"`

	// RateLimitMaxTokens is the token bucket capacity for outbound
	// archive/config scans. Default: 100.
	RateLimitMaxTokens int `yaml:"rate_limit_max_tokens"`

	// RateLimitRefillInterval is how often the bucket refills.
	// Default: 1s.
	RateLimitRefillInterval time.Duration `yaml:"rate_limit_refill_interval"`

	// CircuitBreakerFailureThreshold is consecutive failures before a
	// breaker opens. Default: 5.
	CircuitBreakerFailureThreshold int `yaml:"circuit_breaker_failure_threshold"`

	// CircuitBreakerResetTimeout is how long an open breaker waits
	// before allowing a trial call. Default: 30s.
	CircuitBreakerResetTimeout time.Duration `yaml:"circuit_breaker_reset_timeout"`
}

// HistoryConfig controls the optional bbolt-backed scan-history ledger.
type HistoryConfig struct {
	// Enabled turns on persistence of a RunRecord per completed scan.
	// Default: false.
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history bbolt file. Requires restart to
	// change. Default: scanner111-history.db.
	DBPath string `yaml:"db_path"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address, loopback
	// only. Default: 127.0.0.1:9091.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	// Default: info.
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	// Default: json.
	LogFormat string `yaml:"log_format"`
}

// RulesConfig points at optional override files for the built-in
// INI/TOML validator rule tables. The paths are loaded from the config
// file but nothing in the engine reads them; the built-in tables are
// always used.
type RulesConfig struct {
	// INIRulesPath names an INI rule-table override file. Not read by
	// the engine.
	INIRulesPath string `yaml:"ini_rules_path"`

	// ConflictMatrixPath names a TOML plugin-conflict matrix override
	// file. Not read by the engine.
	ConflictMatrixPath string `yaml:"conflict_matrix_path"`
}

// DefaultHistoryDBPath is the default location of the scan-history ledger.
const DefaultHistoryDBPath = "scanner111-history.db"

// Defaults returns a Config populated with all default values.
func Defaults() Config {
	return Config{
		SchemaVersion: "1",
		Pipeline: PipelineConfig{
			Strategy:               "prioritized",
			MaxAnalysisParallelism: 4,
			GlobalTimeout:          30 * time.Second,
			BoundedCapacity:        64,
			ContinueOnError:        true,
			BatchSize:              8,
		},
		Cache: CacheConfig{
			PathValidationTTL:      2 * time.Minute,
			GameDiscoveryTTL:       5 * time.Minute,
			ConfigFileCacheEnabled: true,
		},
		AsyncToolkit: AsyncToolkitConfig{
			RetryPreset:                    "default",
			RateLimitMaxTokens:             100,
			RateLimitRefillInterval:        time.Second,
			CircuitBreakerFailureThreshold: 5,
			CircuitBreakerResetTimeout:     30 * time.Second,
		},
		History: HistoryConfig{
			Enabled: false,
			DBPath:  DefaultHistoryDBPath,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

// Load reads and validates a config file from the given path.
// Returns the merged config (defaults overridden by file values).
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks all config fields for correctness.
// Returns a descriptive error listing all violations found.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}

	switch cfg.Pipeline.Strategy {
	case "sequential", "parallel", "prioritized", "batched":
	default:
		errs = append(errs, fmt.Sprintf("pipeline.strategy must be one of sequential|parallel|prioritized|batched, got %q", cfg.Pipeline.Strategy))
	}
	if cfg.Pipeline.MaxAnalysisParallelism < 1 || cfg.Pipeline.MaxAnalysisParallelism > 64 {
		errs = append(errs, fmt.Sprintf("pipeline.max_analysis_parallelism must be in [1, 64], got %d", cfg.Pipeline.MaxAnalysisParallelism))
	}
	if cfg.Pipeline.BoundedCapacity < 1 {
		errs = append(errs, fmt.Sprintf("pipeline.bounded_capacity must be >= 1, got %d", cfg.Pipeline.BoundedCapacity))
	}
	if cfg.Pipeline.GlobalTimeout < 0 {
		errs = append(errs, "pipeline.global_timeout must not be negative")
	}
	if cfg.Pipeline.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("pipeline.batch_size must be >= 1, got %d", cfg.Pipeline.BatchSize))
	}

	if cfg.Cache.PathValidationTTL < 0 {
		errs = append(errs, "cache.path_validation_ttl must not be negative")
	}
	if cfg.Cache.GameDiscoveryTTL < 0 {
		errs = append(errs, "cache.game_discovery_ttl must not be negative")
	}

	switch cfg.AsyncToolkit.RetryPreset {
	case "default", "aggressive", "conservative":
	default:
		errs = append(errs, fmt.Sprintf("async_toolkit.retry_preset must be one of default|aggressive|conservative, got %q", cfg.AsyncToolkit.RetryPreset))
	}
	if cfg.AsyncToolkit.RateLimitMaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("async_toolkit.rate_limit_max_tokens must be >= 1, got %d", cfg.AsyncToolkit.RateLimitMaxTokens))
	}
	if cfg.AsyncToolkit.RateLimitRefillInterval <= 0 {
		errs = append(errs, "async_toolkit.rate_limit_refill_interval must be > 0")
	}
	if cfg.AsyncToolkit.CircuitBreakerFailureThreshold < 1 {
		errs = append(errs, fmt.Sprintf("async_toolkit.circuit_breaker_failure_threshold must be >= 1, got %d", cfg.AsyncToolkit.CircuitBreakerFailureThreshold))
	}
	if cfg.AsyncToolkit.CircuitBreakerResetTimeout <= 0 {
		errs = append(errs, "async_toolkit.circuit_breaker_reset_timeout must be > 0")
	}

	if cfg.History.Enabled && cfg.History.DBPath == "" {
		errs = append(errs, "history.db_path must not be empty when history.enabled is true")
	}

	switch cfg.Observability.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("observability.log_level must be one of debug|info|warn|error, got %q", cfg.Observability.LogLevel))
	}
	switch cfg.Observability.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("observability.log_format must be one of json|console, got %q", cfg.Observability.LogFormat))
	}

	if len(errs) > 0 {
		msg := "invalid configuration:"
		for _, e := range errs {
			msg += "\n  - " + e
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

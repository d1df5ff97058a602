// Package main — cmd/scanner111/main.go
//
// Scanner111 engine entrypoint.
//
// This binary is the composition root for the Analysis Pipeline: it
// loads configuration, wires the built-in analyzers and async toolkit
// defaults, and processes one or more crash-log paths given on the
// command line. It deliberately does not implement the full
// scan|fcx|watch|config|about|interactive subcommand surface — that CLI
// is an external collaborator's responsibility; this binary exercises
// the core pipeline directly.
//
// Startup sequence:
//  1. Load and validate config from the given (or default) path.
//  2. Initialise structured logger (zap).
//  3. Start Prometheus metrics server (loopback only).
//  4. Open the scan-history ledger, if enabled.
//  5. Build an Orchestrator from config and the registered analyzers.
//  6. Run every input path through the pipeline.
//  7. Write each report to <input>-AUTOSCAN.md (spec section 6).
//
// On config validation failure: exit 1 immediately. Only a missing
// default scanner111.yaml falls back to built-in defaults.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evildarkarchon/scanner111/contrib"
	"github.com/evildarkarchon/scanner111/internal/analyzer"
	_ "github.com/evildarkarchon/scanner111/internal/analyzer/builtin"
	"github.com/evildarkarchon/scanner111/internal/config"
	"github.com/evildarkarchon/scanner111/internal/history"
	"github.com/evildarkarchon/scanner111/internal/mmapfile"
	"github.com/evildarkarchon/scanner111/internal/observability"
	"github.com/evildarkarchon/scanner111/internal/pipeline"
	"github.com/evildarkarchon/scanner111/internal/verify"
)

func main() {
	// ── Flags ─────────────────────────────────────────────────────────────────
	configPath := flag.String("config", "scanner111.yaml", "Path to scanner111.yaml")
	version := flag.Bool("version", false, "Print version and exit")
	gameRoot := flag.String("game-root", "", "Discovered game installation root (enables FCXAnalyzer)")
	fcx := flag.Bool("fcx", false, "Run in File Check eXtended mode")
	flag.Parse()

	if *version {
		fmt.Printf("scanner111 %s (commit=%s built=%s)\n",
			config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
	}

	inputPaths := flag.Args()
	if len(inputPaths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: scanner111 [flags] <crash-log> [crash-log...]")
		os.Exit(1)
	}

	// ── Step 1: Load config ───────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if _, statErr := os.Stat(*configPath); os.IsNotExist(statErr) && *configPath == "scanner111.yaml" {
			cfgDefault := config.Defaults()
			cfg = &cfgDefault
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: config load failed: %v\n", err)
			os.Exit(1)
		}
	}

	// ── Step 2: Initialise logger ─────────────────────────────────────────────
	log, err := buildLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("scanner111 starting",
		zap.String("version", config.Version),
		zap.String("commit", config.GitCommit),
		zap.String("built", config.BuildTime),
		zap.Strings("inputs", inputPaths),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ── Step 3: Prometheus metrics ────────────────────────────────────────────
	metrics := observability.NewMetrics()
	go func() {
		if err := metrics.ServeMetrics(ctx, cfg.Observability.MetricsAddr); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	log.Info("metrics server started", zap.String("addr", cfg.Observability.MetricsAddr))

	// ── Step 4: Scan-history ledger ───────────────────────────────────────────
	var ledger *history.Ledger
	var verifier *verify.Kernel
	if cfg.History.Enabled {
		ledger, err = history.Open(cfg.History.DBPath)
		if err != nil {
			log.Fatal("history ledger open failed", zap.Error(err), zap.String("path", cfg.History.DBPath))
		}
		defer ledger.Close() //nolint:errcheck
		verifier = verify.NewKernel(log)
		log.Info("scan-history ledger opened", zap.String("path", cfg.History.DBPath))
	}

	// ── Step 5: Build orchestrator ─────────────────────────────────────────────
	mmap := mmapfile.New()
	defer mmap.Dispose() //nolint:errcheck

	analyzers := buildAnalyzers(*fcx, log)
	orch := pipeline.New(pipeline.Options{
		Strategy:               strategyFromString(cfg.Pipeline.Strategy),
		MaxAnalysisParallelism: cfg.Pipeline.MaxAnalysisParallelism,
		GlobalTimeout:          cfg.Pipeline.GlobalTimeout,
		BoundedCapacity:        cfg.Pipeline.BoundedCapacity,
		ContinueOnError:        cfg.Pipeline.ContinueOnError,
		BatchSize:              cfg.Pipeline.BatchSize,
		FCXMode:                *fcx,
		Logger:                 log,
		Metrics:                metrics,
	}, mmap)

	var requests []pipeline.AnalysisRequest
	for _, p := range inputPaths {
		requests = append(requests, pipeline.AnalysisRequest{
			InputPath:        p,
			GameRoot:         *gameRoot,
			IsFallout4:       true,
			EnabledAnalyzers: analyzers,
		})
	}

	// ── Step 6: Run the pipeline ───────────────────────────────────────────────
	start := time.Now()
	results := orch.Run(ctx, requests)
	log.Info("pipeline run complete", zap.Int("requests", len(results)), zap.Duration("elapsed", time.Since(start)))

	// ── Step 7: Write reports and, optionally, history ────────────────────────
	exitCode := 0
	for _, res := range results {
		outPath := strings.TrimSuffix(res.Request.InputPath, filepath.Ext(res.Request.InputPath)) + "-AUTOSCAN.md"
		if err := os.WriteFile(outPath, []byte(res.Report), 0o644); err != nil {
			log.Error("failed to write report", zap.String("path", outPath), zap.Error(err))
			exitCode = 1
			continue
		}
		log.Info("report written",
			zap.String("input", res.Request.InputPath),
			zap.String("output", outPath),
			zap.String("state", res.FinalState.String()),
			zap.String("severity", res.OverallSeverity.String()),
		)
		if res.FinalState == pipeline.StateFailed {
			exitCode = 1
		}
		if ledger != nil && verifier != nil {
			rec := history.RunRecord{
				InputPath:       res.Request.InputPath,
				OverallSeverity: res.OverallSeverity.String(),
				FragmentCount:   len(res.AnalyzerResults),
				Duration:        time.Since(start),
			}
			if err := ledger.AppendVerifiedRun(verifier, rec); err != nil {
				log.Warn("history append failed", zap.Error(err))
			}
		}
	}

	log.Info("scanner111 shutdown complete")
	os.Exit(exitCode)
}

// buildAnalyzers constructs the enabled analyzer set from the contrib
// registry. FCXAnalyzer is only included when fcxMode is set, matching
// spec section 4.1's "priority 30, only when Options.FCXMode".
func buildAnalyzers(fcxMode bool, log *zap.Logger) []analyzer.Analyzer {
	names := []string{"CrashHeaderAnalyzer", "SettingsAnalyzer", "PluginLoadOrderAnalyzer", "MemoryManagerAnalyzer"}
	if fcxMode {
		names = append(names, "FCXAnalyzer")
	}
	var out []analyzer.Analyzer
	for _, name := range names {
		a, err := contrib.GetAnalyzer(name)
		if err != nil {
			log.Warn("analyzer not registered, skipping", zap.String("name", name), zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out
}

func strategyFromString(s string) pipeline.Strategy {
	switch s {
	case "sequential":
		return pipeline.Sequential
	case "parallel":
		return pipeline.Parallel
	case "batched":
		return pipeline.Batched
	default:
		return pipeline.Prioritized
	}
}

// buildLogger constructs a zap.Logger with the given level and format.
func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}

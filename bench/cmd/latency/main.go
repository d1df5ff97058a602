// Package bench — latency/main.go
//
// Pipeline throughput and latency measurement tool.
//
// Generates a set of synthetic crash logs, runs them through an
// Orchestrator configured the same way the production strategy is,
// and measures throughput and an average per-request latency.
//
// Method:
//  1. Writes N synthetic crash-log files to a temp directory.
//  2. Builds an Orchestrator with the requested Strategy and
//     parallelism.
//  3. Times one Run() over all N requests under the requested strategy.
//     Requests are not timed individually: every row's latency is the
//     batch's elapsed time divided by N, so the p50/p95/p99 printed to
//     stdout come from a histogram of that single average value.
//  4. Per-request rows are written to a CSV file.
//
// Output CSV columns:
//
//	iteration, latency_us, failed (true/false)
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
	"github.com/evildarkarchon/scanner111/internal/mmapfile"
	"github.com/evildarkarchon/scanner111/internal/pipeline"
)

func main() {
	iterations := flag.Int("iterations", 2000, "Number of synthetic requests to measure")
	outputFile := flag.String("output", "latency_raw.csv", "Output CSV file path")
	strategy := flag.String("strategy", "prioritized", "sequential|parallel|prioritized|batched")
	parallelism := flag.Int("parallelism", 4, "MaxAnalysisParallelism")
	flag.Parse()

	dir, err := os.MkdirTemp("", "scanner111-bench-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkdtemp: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	requests := make([]pipeline.AnalysisRequest, *iterations)
	for i := range requests {
		path := filepath.Join(dir, fmt.Sprintf("crash-%d.log", i))
		if err := os.WriteFile(path, syntheticCrashLog(i), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write synthetic log %d: %v\n", i, err)
			os.Exit(1)
		}
		requests[i] = pipeline.AnalysisRequest{
			InputPath:        path,
			IsFallout4:       true,
			EnabledAnalyzers: []analyzer.Analyzer{&nopAnalyzer{}},
		}
	}

	mmap := mmapfile.New()
	defer mmap.Dispose() //nolint:errcheck

	orch := pipeline.New(pipeline.Options{
		Strategy:               strategyFromString(*strategy),
		MaxAnalysisParallelism: *parallelism,
		BoundedCapacity:        64,
		ContinueOnError:        true,
		BatchSize:              8,
	}, mmap)

	f, err := os.Create(*outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	_ = w.Write([]string{"iteration", "latency_us", "failed"})

	var totalFailed int
	p50Bucket := make([]int, 1_000_001) // 0-1,000,000us buckets

	start := time.Now()
	results := orch.Run(context.Background(), requests)
	elapsed := time.Since(start)

	for i, res := range results {
		latencyUs := int(elapsed.Microseconds()) / len(results)
		if res.FinalState == pipeline.StateFailed {
			totalFailed++
		}
		if latencyUs < len(p50Bucket) {
			p50Bucket[latencyUs]++
		}
		_ = w.Write([]string{
			strconv.Itoa(i),
			strconv.Itoa(latencyUs),
			strconv.FormatBool(res.FinalState == pipeline.StateFailed),
		})
	}

	p50, p95, p99 := computePercentiles(p50Bucket, len(results))
	throughput := float64(len(results)) / elapsed.Seconds()

	fmt.Printf("Pipeline Throughput Results (%d requests, strategy=%s, parallelism=%d)\n",
		*iterations, *strategy, *parallelism)
	fmt.Printf("  Failed: %d/%d\n", totalFailed, len(results))
	fmt.Printf("  Elapsed: %s\n", elapsed)
	fmt.Printf("  Throughput: %.1f req/s\n", throughput)
	fmt.Printf("  p50: %dus  p95: %dus  p99: %dus (approximate, average-latency histogram)\n", p50, p95, p99)
	fmt.Printf("  Output: %s\n", *outputFile)
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

func syntheticCrashLog(i int) []byte {
	return []byte(fmt.Sprintf("Fallout 4 v1.10.163\nBuffout4 v1.26.2\n\nUnhandled exception \"EXCEPTION_ACCESS_VIOLATION\" at 0x7FF6%05X\n\nPROBABLE CALL STACK:\n\t[0] 0x7FF6%05X\n", i, i))
}

// nopAnalyzer is a minimal analyzer used only to exercise the pipeline's
// scheduling overhead without any real rule evaluation.
type nopAnalyzer struct{}

func (a *nopAnalyzer) Name() string           { return "nop" }
func (a *nopAnalyzer) Priority() int          { return 10 }
func (a *nopAnalyzer) Timeout() time.Duration { return time.Second }
func (a *nopAnalyzer) Analyze(ctx context.Context, actx *analyzer.Context) analyzer.Result {
	return analyzer.Result{AnalyzerName: a.Name(), Success: true, Severity: analyzer.SeverityInfo}
}

func computePercentiles(hist []int, total int) (p50, p95, p99 int) {
	targets := []struct {
		pct float64
		out *int
	}{
		{0.50, &p50},
		{0.95, &p95},
		{0.99, &p99},
	}
	cumulative := 0
	ti := 0
	for i, count := range hist {
		cumulative += count
		for ti < len(targets) && float64(cumulative) >= targets[ti].pct*float64(total) {
			*targets[ti].out = i
			ti++
		}
		if ti == len(targets) {
			break
		}
	}
	return
}

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
	"github.com/evildarkarchon/scanner111/internal/fragment"
	"github.com/evildarkarchon/scanner111/internal/mmapfile"
)

type fakeAnalyzer struct {
	name     string
	priority int
	fn       func(ctx context.Context, actx *analyzer.Context) analyzer.Result
}

func (f *fakeAnalyzer) Name() string           { return f.name }
func (f *fakeAnalyzer) Priority() int          { return f.priority }
func (f *fakeAnalyzer) Timeout() time.Duration { return 0 }
func (f *fakeAnalyzer) Analyze(ctx context.Context, actx *analyzer.Context) analyzer.Result {
	return f.fn(ctx, actx)
}

func infoAnalyzer(name string, priority int) *fakeAnalyzer {
	return &fakeAnalyzer{name: name, priority: priority, fn: func(ctx context.Context, actx *analyzer.Context) analyzer.Result {
		return analyzer.Result{AnalyzerName: name, Success: true, Fragment: fragment.Info(name, "found "+name)}
	}}
}

func writeCrashLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOrchestratorSequentialStrategy(t *testing.T) {
	dir := t.TempDir()
	path := writeCrashLog(t, dir, "crash-1.log", "dummy crash content")

	mmap := mmapfile.New()
	defer mmap.Dispose()

	opts := DefaultOptions()
	opts.Strategy = Sequential
	orch := New(opts, mmap)

	results := orch.Run(context.Background(), []AnalysisRequest{
		{InputPath: path, EnabledAnalyzers: []analyzer.Analyzer{infoAnalyzer("A", 10), infoAnalyzer("B", 20)}},
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].FinalState != StateCompleted {
		t.Fatalf("expected Completed, got %s", results[0].FinalState)
	}
	if len(results[0].AnalyzerResults) != 2 {
		t.Fatalf("expected 2 analyzer results, got %d", len(results[0].AnalyzerResults))
	}
}

func TestOrchestratorPrioritizedGroupsRunInOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeCrashLog(t, dir, "crash.log", "dummy")

	mmap := mmapfile.New()
	defer mmap.Dispose()

	var order []string
	publisher := &fakeAnalyzer{name: "first", priority: 0, fn: func(ctx context.Context, actx *analyzer.Context) analyzer.Result {
		order = append(order, "first")
		actx.Set("seen", true)
		return analyzer.Result{AnalyzerName: "first", Success: true, Fragment: fragment.Info("first", "ran")}
	}}
	consumer := &fakeAnalyzer{name: "second", priority: 10, fn: func(ctx context.Context, actx *analyzer.Context) analyzer.Result {
		order = append(order, "second")
		if _, ok := actx.Get("seen"); !ok {
			t.Error("expected earlier priority group's write to be visible")
		}
		return analyzer.Result{AnalyzerName: "second", Success: true, Fragment: fragment.Info("second", "ran")}
	}}

	opts := DefaultOptions()
	orch := New(opts, mmap)
	results := orch.Run(context.Background(), []AnalysisRequest{
		{InputPath: path, EnabledAnalyzers: []analyzer.Analyzer{consumer, publisher}},
	})
	if len(results) != 1 || results[0].FinalState != StateCompleted {
		t.Fatalf("unexpected result: %+v", results)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected priority groups to run in order, got %v", order)
	}
}

func TestOrchestratorContinuesAfterAnalyzerFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeCrashLog(t, dir, "crash.log", "dummy")

	mmap := mmapfile.New()
	defer mmap.Dispose()

	failing := &fakeAnalyzer{name: "boom", priority: 10, fn: func(ctx context.Context, actx *analyzer.Context) analyzer.Result {
		panic("simulated analyzer failure")
	}}
	ok := infoAnalyzer("ok", 20)

	opts := DefaultOptions()
	opts.ContinueOnError = true
	orch := New(opts, mmap)
	results := orch.Run(context.Background(), []AnalysisRequest{
		{InputPath: path, EnabledAnalyzers: []analyzer.Analyzer{failing, ok}},
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].FinalState != StateCompleted {
		t.Fatalf("expected request to complete despite one analyzer failing, got %s", results[0].FinalState)
	}
	foundOK := false
	for _, r := range results[0].AnalyzerResults {
		if r.AnalyzerName == "ok" && r.Success {
			foundOK = true
		}
	}
	if !foundOK {
		t.Fatal("expected the second analyzer to still run and succeed")
	}
}

func TestOrchestratorMissingInputSurfacesAsFailure(t *testing.T) {
	mmap := mmapfile.New()
	defer mmap.Dispose()

	opts := DefaultOptions()
	orch := New(opts, mmap)
	results := orch.Run(context.Background(), []AnalysisRequest{
		{InputPath: filepath.Join(t.TempDir(), "does-not-exist.log")},
	})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].FinalState != StateFailed {
		t.Fatalf("expected Failed for missing input, got %s", results[0].FinalState)
	}
	if results[0].Err == nil {
		t.Fatal("expected a non-nil error for missing input")
	}
}

func TestOrchestratorBatchedStrategyProcessesAll(t *testing.T) {
	dir := t.TempDir()
	var requests []AnalysisRequest
	for i := 0; i < 5; i++ {
		path := writeCrashLog(t, dir, crashLogName(i), "dummy")
		requests = append(requests, AnalysisRequest{InputPath: path, EnabledAnalyzers: []analyzer.Analyzer{infoAnalyzer("A", 0)}})
	}

	mmap := mmapfile.New()
	defer mmap.Dispose()

	opts := DefaultOptions()
	opts.Strategy = Batched
	opts.BatchSize = 2
	orch := New(opts, mmap)
	results := orch.Run(context.Background(), requests)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		if r.FinalState != StateCompleted {
			t.Fatalf("result %d: expected Completed, got %s", i, r.FinalState)
		}
	}
}

func crashLogName(i int) string {
	return "crash-" + string(rune('a'+i)) + ".log"
}

func TestOrchestratorPrioritizedHandlesMoreRequestsThanParallelism(t *testing.T) {
	dir := t.TempDir()
	var requests []AnalysisRequest
	const n = 9
	for i := 0; i < n; i++ {
		path := writeCrashLog(t, dir, crashLogName(i), "dummy")
		requests = append(requests, AnalysisRequest{InputPath: path, EnabledAnalyzers: []analyzer.Analyzer{infoAnalyzer("A", 0)}})
	}

	mmap := mmapfile.New()
	defer mmap.Dispose()

	opts := DefaultOptions()
	opts.MaxAnalysisParallelism = 4
	orch := New(opts, mmap)

	done := make(chan []AnalysisResult, 1)
	go func() { done <- orch.Run(context.Background(), requests) }()

	select {
	case results := <-done:
		if len(results) != n {
			t.Fatalf("expected %d results, got %d", n, len(results))
		}
		for i, r := range results {
			if r.FinalState != StateCompleted {
				t.Fatalf("result %d: expected Completed, got %s", i, r.FinalState)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run deadlocked with more requests than MaxAnalysisParallelism")
	}
}

func TestOrchestratorPreservesResultsForDuplicateInputPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeCrashLog(t, dir, "crash-dup.log", "dummy")

	mmap := mmapfile.New()
	defer mmap.Dispose()

	opts := DefaultOptions()
	orch := New(opts, mmap)
	requests := []AnalysisRequest{
		{InputPath: path, EnabledAnalyzers: []analyzer.Analyzer{infoAnalyzer("A", 0)}},
		{InputPath: path, EnabledAnalyzers: []analyzer.Analyzer{infoAnalyzer("A", 0)}},
	}
	results := orch.Run(context.Background(), requests)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r.FinalState != StateCompleted {
			t.Fatalf("result %d: expected Completed (same InputPath as another request), got %s", i, r.FinalState)
		}
	}
}

package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
	"github.com/evildarkarchon/scanner111/internal/fragment"
	"github.com/evildarkarchon/scanner111/internal/mmapfile"
	"github.com/evildarkarchon/scanner111/internal/observability"
	"github.com/evildarkarchon/scanner111/internal/report"
	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// Strategy selects how the Analyze stage schedules analyzers across a
// request, per spec section 4.1.
type Strategy int

const (
	// Prioritized runs priority groups sequentially, analyzers within a
	// group in parallel up to Options.MaxAnalysisParallelism. The default.
	Prioritized Strategy = iota
	// Sequential runs every analyzer one at a time, ignoring grouping.
	Sequential
	// Parallel ignores priority and runs every analyzer concurrently, up
	// to Options.MaxAnalysisParallelism.
	Parallel
	// Batched groups requests and pipelines stages across groups: the
	// orchestrator's worker pool runs Load/Analyze/Compose for multiple
	// requests concurrently instead of one at a time.
	Batched
)

// Options configures one Orchestrator.
type Options struct {
	Strategy               Strategy
	MaxAnalysisParallelism int
	GlobalTimeout          time.Duration
	BoundedCapacity        int
	ContinueOnError        bool
	FCXMode                bool
	BatchSize              int
	Logger                 *zap.Logger
	Metrics                *observability.Metrics
}

// DefaultOptions returns sensible defaults: prioritized execution, four
// parallel analyzers per group, a 30s global timeout, a bounded queue of
// 64, and ContinueOnError enabled (spec section 4.1's default failure
// policy).
func DefaultOptions() Options {
	return Options{
		Strategy:               Prioritized,
		MaxAnalysisParallelism: 4,
		GlobalTimeout:          30 * time.Second,
		BoundedCapacity:        64,
		ContinueOnError:        true,
		BatchSize:              8,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// AnalysisRequest is one unit of work submitted to the orchestrator.
type AnalysisRequest struct {
	InputPath        string
	Game             string
	GameRoot         string
	PluginsDir       string
	IsFallout4       bool
	CrashGenName     string
	EnabledAnalyzers []analyzer.Analyzer
}

// AnalysisResult is the final outcome of one request: its rendered
// report, the per-analyzer results that fed it, and the state it
// terminated in.
type AnalysisResult struct {
	Request         AnalysisRequest
	Report          string
	AnalyzerResults []analyzer.Result
	OverallSeverity analyzer.Severity
	FinalState      RequestState
	Err             error
}

// loadedItem is what the Load stage publishes into the bounded
// Load->Analyze queue.
type loadedItem struct {
	request AnalysisRequest
	index   int
	content []byte
	state   *RequestStateHolder
	loadErr error
}

// Orchestrator runs the Load/Analyze/Compose pipeline over a stream of
// AnalysisRequests using a bounded channel and context-cancellable
// worker goroutines.
type Orchestrator struct {
	opts    Options
	mmap    *mmapfile.Handler
	analyze analyzeFunc
}

type analyzeFunc func(ctx context.Context, item loadedItem) AnalysisResult

// New constructs an Orchestrator backed by mmap for input resolution.
func New(opts Options, mmap *mmapfile.Handler) *Orchestrator {
	if opts.MaxAnalysisParallelism <= 0 {
		opts.MaxAnalysisParallelism = 1
	}
	if opts.BoundedCapacity <= 0 {
		opts.BoundedCapacity = 1
	}
	o := &Orchestrator{opts: opts, mmap: mmap}
	o.analyze = o.runAnalyzeAndCompose
	return o
}

// Run processes every request in requests and returns their results in
// submission order. The Load stage publishes into a channel of capacity
// Options.BoundedCapacity; this is the pipeline's sole backpressure
// mechanism, matching spec section 5 ("no drop policy; producers wait").
func (o *Orchestrator) Run(ctx context.Context, requests []AnalysisRequest) []AnalysisResult {
	switch o.opts.Strategy {
	case Sequential:
		return o.runSequential(ctx, requests)
	case Batched:
		return o.runBatched(ctx, requests)
	default:
		return o.runPipelined(ctx, requests)
	}
}

// runSequential processes one request fully (load, analyze, compose)
// before starting the next. Used by the Sequential strategy's "single
// worker" semantics.
func (o *Orchestrator) runSequential(ctx context.Context, requests []AnalysisRequest) []AnalysisResult {
	results := make([]AnalysisResult, len(requests))
	for i, req := range requests {
		results[i] = o.processOne(ctx, req)
	}
	return results
}

// runBatched groups requests into chunks of Options.BatchSize and runs
// each chunk's requests concurrently, chunk by chunk, so stages for
// different requests within a chunk pipeline against each other.
func (o *Orchestrator) runBatched(ctx context.Context, requests []AnalysisRequest) []AnalysisResult {
	size := o.opts.BatchSize
	if size <= 0 {
		size = 1
	}
	results := make([]AnalysisResult, len(requests))
	for start := 0; start < len(requests); start += size {
		end := start + size
		if end > len(requests) {
			end = len(requests)
		}
		chunkResults := o.runPipelined(ctx, requests[start:end])
		copy(results[start:end], chunkResults)
	}
	return results
}

// runPipelined feeds requests through a bounded Load->Analyze channel
// drained by Options.MaxAnalysisParallelism workers, the default
// Prioritized/Parallel strategy shape.
func (o *Orchestrator) runPipelined(ctx context.Context, requests []AnalysisRequest) []AnalysisResult {
	queue := make(chan loadedItem, o.opts.BoundedCapacity)
	results := make([]AnalysisResult, len(requests))

	go func() {
		defer close(queue)
		for i, req := range requests {
			item := o.load(ctx, req)
			item.index = i
			select {
			case queue <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	type indexedResult struct {
		index int
		res   AnalysisResult
	}
	workers := o.opts.MaxAnalysisParallelism
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	done := make(chan struct{})
	// resultCh is buffered to len(requests) so every worker's send
	// completes immediately; an unbuffered channel drained only after
	// the dispatch loop below finishes would deadlock once more than
	// `workers` requests are in flight (each blocked worker still holds
	// its sem slot until its send is received).
	resultCh := make(chan indexedResult, len(requests))
	go func() {
		defer close(done)
		var pending int
		for item := range queue {
			pending++
			sem <- struct{}{}
			go func(item loadedItem) {
				defer func() { <-sem }()
				resultCh <- indexedResult{index: item.index, res: o.analyze(ctx, item)}
			}(item)
		}
		for i := 0; i < pending; i++ {
			ir := <-resultCh
			results[ir.index] = ir.res
		}
	}()

	<-done
	return results
}

// processOne runs the full Load->Analyze->Compose chain for a single
// request, used by the Sequential strategy.
func (o *Orchestrator) processOne(ctx context.Context, req AnalysisRequest) AnalysisResult {
	item := o.load(ctx, req)
	return o.analyze(ctx, item)
}

// load resolves a request's input file via the shared mmap pool. Missing
// paths produce a failure item that still reaches Compose, per spec
// section 4.1 ("Rejects missing paths with a pipeline failure item that
// is still surfaced to Compose").
func (o *Orchestrator) load(ctx context.Context, req AnalysisRequest) loadedItem {
	state := NewRequestStateHolder()
	handle, err := o.mmap.Open(req.InputPath, mmapfile.ReadOnly)
	if err != nil {
		state.Transition(StateFailed)
		return loadedItem{request: req, state: state, loadErr: scanerrors.Wrap(scanerrors.KindNotFound, "pipeline.load", err)}
	}
	defer handle.Release()

	content, err := handle.Read(0, handle.Size())
	if err != nil {
		state.Transition(StateFailed)
		return loadedItem{request: req, state: state, loadErr: err}
	}
	state.Transition(StateLoaded)
	buf := make([]byte, len(content))
	copy(buf, content)
	return loadedItem{request: req, content: buf, state: state}
}

// runAnalyzeAndCompose runs the Analyze stage (priority-grouped per
// Strategy) followed by the Compose stage for one loaded item.
func (o *Orchestrator) runAnalyzeAndCompose(ctx context.Context, item loadedItem) AnalysisResult {
	logger := o.opts.logger()
	if item.loadErr != nil {
		return AnalysisResult{
			Request:    item.request,
			FinalState: StateFailed,
			Err:        item.loadErr,
			Report:     fmt.Sprintf("failed to load %q: %v", item.request.InputPath, item.loadErr),
		}
	}

	actx := analyzer.NewContext(item.request.InputPath, item.request.Game, item.content)
	actx.GameRoot = item.request.GameRoot
	actx.PluginsDir = item.request.PluginsDir
	actx.IsFallout4 = item.request.IsFallout4
	actx.CrashGenName = item.request.CrashGenName
	actx.FCXMode = o.opts.FCXMode

	item.state.Transition(StateAnalyzing)

	groups := groupByPriority(item.request.EnabledAnalyzers, o.opts.Strategy)
	var allResults []analyzer.Result
	var cancelled bool

	for _, group := range groups {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		groupResults := o.runGroup(ctx, group, actx, logger)
		allResults = append(allResults, groupResults...)
		for _, r := range groupResults {
			if !r.Success && !o.opts.ContinueOnError {
				cancelled = true
			}
			if r.SkipFurtherProcessing {
				cancelled = true
			}
		}
		if cancelled {
			break
		}
	}

	if cancelled && ctx.Err() != nil {
		item.state.Transition(StateCancelled)
	} else {
		item.state.Transition(StateComposing)
	}

	analyzerResults := make([]report.AnalyzerResult, 0, len(allResults))
	for _, r := range allResults {
		var err error
		if len(r.Errors) > 0 {
			err = fmt.Errorf("%s", r.Errors[0])
		}
		analyzerResults = append(analyzerResults, report.AnalyzerResult{
			AnalyzerName: r.AnalyzerName,
			Fragment:     r.Fragment,
			Success:      r.Success,
			Err:          err,
			Duration:     r.Duration,
		})
	}

	rendered := report.ComposeReport(analyzerResults, report.Options{
		Format:            report.FormatMarkdown,
		SortByOrder:       true,
		MinimumVisibility: fragment.VisibilityNormal,
		Title:             "Scanner111 Analysis Report",
	})
	text, renderErr := report.Render(rendered, report.Options{Format: report.FormatMarkdown, SortByOrder: true, Title: "Scanner111 Analysis Report"})
	if renderErr != nil {
		text = "report rendering failed: " + renderErr.Error()
	}

	finalState := StateCompleted
	if item.state.Current() == StateCancelled {
		finalState = StateCancelled
	}
	item.state.Transition(finalState)

	return AnalysisResult{
		Request:         item.request,
		Report:          text,
		AnalyzerResults: allResults,
		OverallSeverity: OverallSeverity(allResults),
		FinalState:      item.state.Current(),
	}
}

// runGroup executes one priority group of analyzers under the
// orchestrator's parallelism cap, per-analyzer timeout, and cancellation
// propagation, per spec section 4.1.
func (o *Orchestrator) runGroup(ctx context.Context, group []analyzer.Analyzer, actx *analyzer.Context, logger *zap.Logger) []analyzer.Result {
	results := make([]analyzer.Result, len(group))
	sem := make(chan struct{}, maxInt(o.opts.MaxAnalysisParallelism, 1))
	done := make(chan struct{})
	go func() {
		defer close(done)
		var pending int
		resultCh := make(chan struct {
			idx int
			res analyzer.Result
		}, len(group))
		for i, a := range group {
			pending++
			sem <- struct{}{}
			go func(i int, a analyzer.Analyzer) {
				defer func() { <-sem }()
				resultCh <- struct {
					idx int
					res analyzer.Result
				}{i, o.runOne(ctx, a, actx, logger)}
			}(i, a)
		}
		for i := 0; i < pending; i++ {
			r := <-resultCh
			results[r.idx] = r.res
		}
	}()
	<-done
	return results
}

// runOne invokes a single analyzer under its own timeout (falling back
// to Options.GlobalTimeout), trapping panics and converting cancellation
// or deadline errors into failed results instead of propagating them,
// per spec section 4.1's "exception trapping" contract.
func (o *Orchestrator) runOne(ctx context.Context, a analyzer.Analyzer, actx *analyzer.Context, logger *zap.Logger) (result analyzer.Result) {
	timeout := a.Timeout()
	if timeout <= 0 {
		timeout = o.opts.GlobalTimeout
	}
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("analyzer panicked", zap.String("analyzer", a.Name()), zap.Any("recover", rec))
			result = analyzer.Failed(a.Name(), fmt.Errorf("panic: %v", rec))
		}
		result.Duration = time.Since(start)
		if o.opts.Metrics != nil {
			o.opts.Metrics.AnalyzerDuration.WithLabelValues(a.Name()).Observe(result.Duration.Seconds())
			if !result.Success {
				o.opts.Metrics.AnalyzerFailuresTotal.WithLabelValues(a.Name()).Inc()
			}
		}
	}()

	result = a.Analyze(runCtx, actx)

	if runCtx.Err() == context.DeadlineExceeded {
		return analyzer.TimedOut(a.Name())
	}
	if runCtx.Err() == context.Canceled {
		return analyzer.Failed(a.Name(), scanerrors.Wrap(scanerrors.KindCancelled, a.Name(), scanerrors.ErrCancelled))
	}
	return result
}

// groupByPriority partitions analyzers into priority groups sorted
// ascending, unless strategy is Parallel (one group, all analyzers) or
// Sequential (one analyzer per group, in priority order).
func groupByPriority(analyzers []analyzer.Analyzer, strategy Strategy) [][]analyzer.Analyzer {
	if len(analyzers) == 0 {
		return nil
	}
	sorted := make([]analyzer.Analyzer, len(analyzers))
	copy(sorted, analyzers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	switch strategy {
	case Parallel:
		return [][]analyzer.Analyzer{sorted}
	case Sequential:
		groups := make([][]analyzer.Analyzer, len(sorted))
		for i, a := range sorted {
			groups[i] = []analyzer.Analyzer{a}
		}
		return groups
	default:
		var groups [][]analyzer.Analyzer
		var current []analyzer.Analyzer
		var currentPriority int
		for i, a := range sorted {
			if i == 0 {
				currentPriority = a.Priority()
			}
			if a.Priority() != currentPriority {
				groups = append(groups, current)
				current = nil
				currentPriority = a.Priority()
			}
			current = append(current, a)
		}
		if len(current) > 0 {
			groups = append(groups, current)
		}
		return groups
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

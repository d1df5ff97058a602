// Package analyzer implements the Analyzer protocol and per-request
// AnalysisContext of spec section 3/4.1: a polymorphic processor that
// reads shared per-request state and produces a report fragment.
package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/evildarkarchon/scanner111/internal/fragment"
)

// Severity classifies an AnalysisResult's overall finding level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	case SeverityCritical:
		return "Critical"
	default:
		return "Info"
	}
}

// Context is the per-request mutable bag analyzers read and write.
// Shared-data access is synchronised under a single RWMutex per spec
// section 5 ("concurrent map with insertion-order irrelevant and typed
// lookup under a read-write discipline").
type Context struct {
	InputPath    string
	Game         string
	Content      []byte
	GameRoot     string
	PluginsDir   string
	IsFallout4   bool
	CrashGenName string
	FCXMode      bool

	mu         sync.RWMutex
	sharedData map[string]any
}

// NewContext creates a Context for inputPath targeting the given game
// identifier (may be empty if undetected yet). content is the crash
// log's raw bytes as resolved by the Load stage.
func NewContext(inputPath, game string, content []byte) *Context {
	return &Context{InputPath: inputPath, Game: game, Content: content, sharedData: make(map[string]any)}
}

// Set publishes a fact under key, visible to any analyzer reading after
// this call returns.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sharedData[key] = value
}

// Get retrieves a previously published fact.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.sharedData[key]
	return v, ok
}

// Result is the immutable outcome of one analyzer invocation.
type Result struct {
	AnalyzerName          string
	Success               bool
	Severity              Severity
	Fragment              fragment.Fragment
	Errors                []string
	Duration              time.Duration
	SkipFurtherProcessing bool
}

// Analyzer is the polymorphic processor interface of spec section 3:
// Name, Priority (lower runs earlier; equal priorities run in
// parallel), Timeout (zero means "use Options.GlobalTimeout"), and
// Analyze.
type Analyzer interface {
	Name() string
	Priority() int
	Timeout() time.Duration
	Analyze(ctx context.Context, actx *Context) Result
}

// Failed builds a Result for an analyzer that errored or was cancelled,
// matching the orchestrator's "exception trapping... converted to
// AnalysisResult{success=false, errors=[...]}" contract (spec section
// 4.1).
func Failed(name string, err error) Result {
	return Result{AnalyzerName: name, Success: false, Severity: SeverityError, Errors: []string{err.Error()}}
}

// TimedOut builds a Result for an analyzer whose timeout elapsed.
func TimedOut(name string) Result {
	return Result{AnalyzerName: name, Success: false, Severity: SeverityError, Errors: []string{"timed out"}}
}

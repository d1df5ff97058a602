// Package contrib is the extension point for third-party analyzers.
//
// Scanner111 ships a fixed set of built-in analyzers
// (internal/analyzer/builtin), but external packages can contribute
// their own by registering a factory in an init() function:
//
//	package myanalyzer
//
//	import "github.com/evildarkarchon/scanner111/contrib"
//
//	func init() {
//	    contrib.RegisterAnalyzer("my-analyzer", func() analyzer.Analyzer {
//	        return &MyAnalyzer{}
//	    })
//	}
//
// The orchestrator never imports contributed packages directly; callers
// wire them in by blank-importing the package, constructing the analyzer
// by name with GetAnalyzer, and passing the instance in
// AnalysisRequest.EnabledAnalyzers.
package contrib

import (
	"fmt"
	"sync"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
)

// Factory constructs a fresh Analyzer instance. Analyzers are
// constructed per pipeline rather than shared, so stateful analyzers
// don't need their own synchronisation for per-run fields.
type Factory func() analyzer.Analyzer

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterAnalyzer registers a named analyzer factory. Panics if the
// name is already registered. Call from init() in contributing packages.
func RegisterAnalyzer(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("contrib: analyzer %q already registered", name))
	}
	registry[name] = factory
}

// GetAnalyzer constructs a new instance of the named analyzer.
func GetAnalyzer(name string) (analyzer.Analyzer, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("contrib: analyzer %q not registered (available: %v)", name, ListAnalyzers())
	}
	return factory(), nil
}

// ListAnalyzers returns the names of all registered analyzer factories.
func ListAnalyzers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	return names
}

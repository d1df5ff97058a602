package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
	"github.com/evildarkarchon/scanner111/internal/fragment"
	"github.com/evildarkarchon/scanner111/internal/tomlconfig"
)

// MemoryManagerAnalyzer cross-references the x-cell/bakascrapheap
// plugin-conflict matrix against the crash-generator's TOML config.
// Priority 20, the same group as PluginLoadOrderAnalyzer — both run
// concurrently (SPEC_FULL C.2).
type MemoryManagerAnalyzer struct{}

func (a *MemoryManagerAnalyzer) Name() string           { return "MemoryManagerAnalyzer" }
func (a *MemoryManagerAnalyzer) Priority() int          { return 20 }
func (a *MemoryManagerAnalyzer) Timeout() time.Duration { return 10 * time.Second }

func (a *MemoryManagerAnalyzer) Analyze(ctx context.Context, actx *analyzer.Context) analyzer.Result {
	if actx.PluginsDir == "" {
		return analyzer.Result{
			AnalyzerName: a.Name(),
			Success:      true,
			Severity:     analyzer.SeverityInfo,
			Fragment:     fragment.Empty(),
		}
	}

	crashGenName := actx.CrashGenName
	if crashGenName == "" {
		if v, ok := actx.Get(SharedKeyCrashGenName); ok {
			crashGenName, _ = v.(string)
		}
	}
	if crashGenName == "" {
		crashGenName = "Buffout4"
	}

	result, err := tomlconfig.Scan(ctx, actx.PluginsDir, crashGenName, actx.IsFallout4, tomlconfig.BuiltinConflictMatrix(), nil)
	if err != nil {
		return analyzer.Failed(a.Name(), err)
	}
	if len(result.ConfigIssues) == 0 {
		return analyzer.Result{
			AnalyzerName: a.Name(),
			Success:      true,
			Severity:     analyzer.SeverityInfo,
			Fragment:     fragment.Info("Memory Manager Conflicts", "no conflicts found"),
		}
	}

	var lines []string
	for _, issue := range result.ConfigIssues {
		lines = append(lines, issue.Description)
	}

	return analyzer.Result{
		AnalyzerName: a.Name(),
		Success:      true,
		Severity:     analyzer.SeverityError,
		Fragment:     fragment.Error("Memory Manager Conflicts", strings.Join(lines, "\n")),
	}
}

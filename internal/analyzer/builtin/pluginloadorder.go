package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
	"github.com/evildarkarchon/scanner111/internal/fragment"
)

var pluginLineRe = regexp.MustCompile(`^\[([0-9A-Fa-f:]+)\]\s+(.+\.es[mlp])\s*$`)

// Plugin is one entry of the crash log's embedded plugin list.
type Plugin struct {
	LoadIndex string
	Name      string
}

// PluginLoadOrderAnalyzer parses the PLUGINS section of the crash log,
// publishes the list to shared data, and flags duplicate entries.
// Priority 20, grouped with MemoryManagerAnalyzer (SPEC_FULL C.2).
type PluginLoadOrderAnalyzer struct{}

func (a *PluginLoadOrderAnalyzer) Name() string           { return "PluginLoadOrderAnalyzer" }
func (a *PluginLoadOrderAnalyzer) Priority() int          { return 20 }
func (a *PluginLoadOrderAnalyzer) Timeout() time.Duration { return 10 * time.Second }

func (a *PluginLoadOrderAnalyzer) Analyze(ctx context.Context, actx *analyzer.Context) analyzer.Result {
	plugins := extractPluginList(actx.Content)
	actx.Set(SharedKeyPluginList, plugins)

	if len(plugins) == 0 {
		return analyzer.Result{
			AnalyzerName: a.Name(),
			Success:      true,
			Severity:     analyzer.SeverityInfo,
			Fragment:     fragment.Info("Plugin Load Order", "no PLUGINS section found in crash log"),
		}
	}

	seen := make(map[string]int)
	var duplicates []string
	for _, p := range plugins {
		key := strings.ToLower(p.Name)
		seen[key]++
		if seen[key] == 2 {
			duplicates = append(duplicates, p.Name)
		}
	}

	if len(duplicates) == 0 {
		return analyzer.Result{
			AnalyzerName: a.Name(),
			Success:      true,
			Severity:     analyzer.SeverityInfo,
			Fragment:     fragment.Info("Plugin Load Order", fmt.Sprintf("%d plugins, no duplicates found", len(plugins))),
		}
	}

	return analyzer.Result{
		AnalyzerName: a.Name(),
		Success:      true,
		Severity:     analyzer.SeverityWarning,
		Fragment:     fragment.Warning("Plugin Load Order", "duplicate plugin entries: "+strings.Join(duplicates, ", ")),
	}
}

func extractPluginList(content []byte) []Plugin {
	var plugins []Plugin
	scanner := bufio.NewScanner(bytes.NewReader(content))
	inBlock := false

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.EqualFold(strings.TrimSpace(line), "PLUGINS:") {
			inBlock = true
			continue
		}
		if !inBlock {
			continue
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		if m := pluginLineRe.FindStringSubmatch(line); m != nil {
			plugins = append(plugins, Plugin{LoadIndex: m[1], Name: m[2]})
		}
	}
	return plugins
}

package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
	"github.com/evildarkarchon/scanner111/internal/fragment"
)

// expectedCrashGenSettings lists settings that should be present in a
// modern crash-generator SETTINGS block; legacyValues flags a setting
// present but carrying a known-outdated value.
var expectedCrashGenSettings = []string{"Achievements", "MemoryManager", "ArchiveLimit", "F4EE"}

var legacyValues = map[string]string{
	"ArchiveLimit": "true",
}

// SettingsAnalyzer extracts the crash-generator's SETTINGS block from the
// crash log into shared data and flags missing or legacy keys. Priority
// 10: runs after the header extraction (SPEC_FULL C.2).
type SettingsAnalyzer struct{}

func (a *SettingsAnalyzer) Name() string           { return "SettingsAnalyzer" }
func (a *SettingsAnalyzer) Priority() int          { return 10 }
func (a *SettingsAnalyzer) Timeout() time.Duration { return 5 * time.Second }

func (a *SettingsAnalyzer) Analyze(ctx context.Context, actx *analyzer.Context) analyzer.Result {
	settings := extractSettingsBlock(actx.Content)
	actx.Set("settings_analyzer.settings", settings)

	var issues []string
	for _, key := range expectedCrashGenSettings {
		value, present := settings[key]
		if !present {
			issues = append(issues, fmt.Sprintf("%s is missing from the crash-generator SETTINGS block", key))
			continue
		}
		if legacy, ok := legacyValues[key]; ok && strings.EqualFold(value, legacy) {
			issues = append(issues, fmt.Sprintf("%s=%s uses a legacy value; update your crash-generator config", key, value))
		}
	}

	if len(issues) == 0 {
		return analyzer.Result{
			AnalyzerName: a.Name(),
			Success:      true,
			Severity:     analyzer.SeverityInfo,
			Fragment:     fragment.Info("Crash Generator Settings", "no issues found"),
		}
	}

	return analyzer.Result{
		AnalyzerName: a.Name(),
		Success:      true,
		Severity:     analyzer.SeverityWarning,
		Fragment:     fragment.Warning("Crash Generator Settings", strings.Join(issues, "\n")),
	}
}

// extractSettingsBlock scans for a "SETTINGS:" marker line and collects
// subsequent "Key: Value" lines until a blank line or another all-caps
// section marker.
func extractSettingsBlock(content []byte) map[string]string {
	settings := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	inBlock := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "SETTINGS:") {
			inBlock = true
			continue
		}
		if !inBlock {
			continue
		}
		if line == "" {
			break
		}
		if strings.HasSuffix(line, ":") && line == strings.ToUpper(line) {
			break
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			break
		}
		settings[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return settings
}

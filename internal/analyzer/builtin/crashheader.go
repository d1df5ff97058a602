package builtin

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"time"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
	"github.com/evildarkarchon/scanner111/internal/fragment"
)

var (
	gameVersionRe     = regexp.MustCompile(`^(Fallout 4|Skyrim Special Edition)\s+v?([\d.]+)`)
	crashGenVersionRe = regexp.MustCompile(`^(Buffout 4|Buffout4|Crash Logger SSE)\s+v?([\d.]+)`)
)

// CrashHeaderAnalyzer parses the raw header block of the crash log
// (game version, crash-generator name and version) and publishes it to
// shared data. Priority 0: it always runs first so every other analyzer
// can depend on its output (spec section 9, SPEC_FULL C.2).
type CrashHeaderAnalyzer struct{}

func (a *CrashHeaderAnalyzer) Name() string           { return "CrashHeaderAnalyzer" }
func (a *CrashHeaderAnalyzer) Priority() int          { return 0 }
func (a *CrashHeaderAnalyzer) Timeout() time.Duration { return 5 * time.Second }

func (a *CrashHeaderAnalyzer) Analyze(ctx context.Context, actx *analyzer.Context) analyzer.Result {
	scanner := bufio.NewScanner(bytes.NewReader(actx.Content))
	lineCount := 0
	var gameName, gameVersion, crashGenName, crashGenVersion string

	for scanner.Scan() && lineCount < 10 {
		line := scanner.Text()
		lineCount++

		if m := gameVersionRe.FindStringSubmatch(line); m != nil && gameVersion == "" {
			gameName, gameVersion = m[1], m[2]
		}
		if m := crashGenVersionRe.FindStringSubmatch(line); m != nil && crashGenVersion == "" {
			crashGenName, crashGenVersion = m[1], m[2]
		}
	}

	if gameVersion == "" {
		return analyzer.Result{
			AnalyzerName: a.Name(),
			Success:      false,
			Severity:     analyzer.SeverityError,
			Errors:       []string{"crash log header missing recognisable game version line"},
		}
	}

	actx.Set(SharedKeyGameVersion, gameVersion)
	actx.Set(SharedKeyCrashGenName, crashGenName)
	actx.Set(SharedKeyCrashGenVersion, crashGenVersion)

	content := gameName + " " + gameVersion
	if crashGenName != "" {
		content += " / " + crashGenName + " " + crashGenVersion
	}

	return analyzer.Result{
		AnalyzerName: a.Name(),
		Success:      true,
		Severity:     analyzer.SeverityInfo,
		Fragment:     fragment.Info("Crash Log Header", content),
	}
}

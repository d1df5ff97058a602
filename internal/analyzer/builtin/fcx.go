package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
	"github.com/evildarkarchon/scanner111/internal/archive"
	"github.com/evildarkarchon/scanner111/internal/fragment"
	"github.com/evildarkarchon/scanner111/internal/integrity"
)

// FCXAnalyzer runs the full installation-correctness sweep: archive
// header scanning plus mod/plugin integrity checks. It only runs when
// Context.FCXMode is set (priority 30, SPEC_FULL C.2).
type FCXAnalyzer struct {
	LoaderExecutable   string // e.g. "f4se_loader.exe"
	XSEBase            string // e.g. "F4SE"
	AddressLibraryGlob string // e.g. "version-*-*-*-*.bin"
}

func (a *FCXAnalyzer) Name() string           { return "FCXAnalyzer" }
func (a *FCXAnalyzer) Priority() int          { return 30 }
func (a *FCXAnalyzer) Timeout() time.Duration { return 30 * time.Second }

func (a *FCXAnalyzer) Analyze(ctx context.Context, actx *analyzer.Context) analyzer.Result {
	if !actx.FCXMode {
		return analyzer.Result{AnalyzerName: a.Name(), Success: true, Severity: analyzer.SeverityInfo, Fragment: fragment.Empty()}
	}
	if actx.GameRoot == "" {
		return analyzer.Result{
			AnalyzerName: a.Name(),
			Success:      false,
			Severity:     analyzer.SeverityError,
			Errors:       []string{"FCX mode requires a discovered game root"},
		}
	}
	actx.Set(SharedKeyGameRoot, actx.GameRoot)

	var fragments []fragment.Fragment

	scanResult, err := archive.Scan(ctx, actx.GameRoot)
	if err != nil {
		return analyzer.Failed(a.Name(), err)
	}
	if scanResult.HasIssues() {
		var lines []string
		for _, issue := range scanResult.FormatIssues {
			lines = append(lines, fmt.Sprintf("%s: invalid BA2 header", issue.ArchiveName))
		}
		fragments = append(fragments, fragment.Error("Archive Format Issues", strings.Join(lines, "\n")))
	} else {
		fragments = append(fragments, fragment.Info("Archives", fmt.Sprintf("%d archives scanned, no format issues", scanResult.TotalFilesScanned)))
	}

	if a.LoaderExecutable != "" {
		seCheck := integrity.CheckScriptExtender(actx.GameRoot, a.LoaderExecutable)
		if !seCheck.Present {
			fragments = append(fragments, fragment.Warning("Script Extender", a.LoaderExecutable+" not found; script-extender-dependent mods will not function"))
		}
	}

	if a.XSEBase != "" && a.AddressLibraryGlob != "" {
		alCheck, err := integrity.CheckAddressLibrary(actx.GameRoot, a.XSEBase, a.AddressLibraryGlob)
		if err != nil {
			return analyzer.Failed(a.Name(), err)
		}
		if !alCheck.Present {
			fragments = append(fragments, fragment.Warning("Address Library", "no matching Address Library file found under Data/"+a.XSEBase+"/Plugins"))
		}
	}

	composed := fragment.Compose(fragments...)
	if !composed.HasContent() {
		composed = fragment.Info("FCX", "installation looks correct")
	}

	return analyzer.Result{
		AnalyzerName: a.Name(),
		Success:      true,
		Severity:     analyzer.SeverityInfo,
		Fragment:     fragment.WithHeader(composed, "FCX Integrity Check"),
	}
}

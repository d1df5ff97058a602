package iniconfig

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// Severity mirrors the four-level ReportFragment severity scale so issues
// can be composed directly into fragments upstream.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// Issue is one finding surfaced by a Rule against a parsed Document.
type Issue struct {
	FilePath         string
	FileName         string
	Section          string
	Key              string
	CurrentValue     string
	RecommendedValue string
	Description      string
	Severity         Severity
}

// Rule is a read-only table entry: "does (filenamePattern, section, key)
// in this document need attention?" Evaluate returns (issue, true) when
// it does, mirroring the "predicate(value) -> issue-or-none" shape of
// spec section 4.4.
type Rule struct {
	Name            string
	FilenamePattern string // glob matched case-insensitively against the base filename
	Section         string
	Key             string
	Evaluate        func(value string, present bool) (Issue, bool)
}

func matchesFilename(pattern, filename string) bool {
	ok, err := filepath.Match(strings.ToLower(pattern), strings.ToLower(filename))
	return err == nil && ok
}

// BuiltinRules returns the fixed rule table described in spec section 4.4.
// The LoadingScreenFPS threshold is configurable (spec section 9, Open
// Question (a)) via the loadingScreenFPSThreshold parameter.
func BuiltinRules(loadingScreenFPSThreshold float64) []Rule {
	return []Rule{
		{
			Name:            "console_command_present",
			FilenamePattern: "fallout4*.ini",
			Section:         "General",
			Key:             "sStartingConsoleCommand",
			Evaluate: func(value string, present bool) (Issue, bool) {
				if !present {
					return Issue{}, false
				}
				return Issue{
					Section: "General", Key: "sStartingConsoleCommand",
					CurrentValue: value, Severity: SeverityWarning,
					Description: "sStartingConsoleCommand runs an arbitrary console command on every load; remove unless intentional.",
				}, true
			},
		},
		{
			Name:            "console_command_present_custom",
			FilenamePattern: "*custom.ini",
			Section:         "General",
			Key:             "sStartingConsoleCommand",
			Evaluate: func(value string, present bool) (Issue, bool) {
				if !present {
					return Issue{}, false
				}
				return Issue{
					Section: "General", Key: "sStartingConsoleCommand",
					CurrentValue: value, Severity: SeverityWarning,
					Description: "sStartingConsoleCommand runs an arbitrary console command on every load; remove unless intentional.",
				}, true
			},
		},
		{
			Name:            "force_vsync_enblocal",
			FilenamePattern: "enblocal.ini",
			Section:         "General",
			Key:             "ForceVSync",
			Evaluate: func(value string, present bool) (Issue, bool) {
				if !present || !strings.EqualFold(value, "true") {
					return Issue{}, false
				}
				return Issue{
					Section: "General", Key: "ForceVSync",
					CurrentValue: value, RecommendedValue: "false", Severity: SeverityWarning,
					Description: "ForceVSync=true in enblocal.ini fights the engine's own frame limiter; disable it.",
				}, true
			},
		},
		{
			Name:            "enable_vsync_highfps",
			FilenamePattern: "highfpsphysicsfix.ini",
			Section:         "Main",
			Key:             "EnableVSync",
			Evaluate: func(value string, present bool) (Issue, bool) {
				if !present || value != "1" {
					return Issue{}, false
				}
				return Issue{
					Section: "Main", Key: "EnableVSync",
					CurrentValue: value, RecommendedValue: "0", Severity: SeverityWarning,
					Description: "EnableVSync=1 in High FPS Physics Fix duplicates the display driver's own vsync; disable it.",
				}, true
			},
		},
		{
			Name:            "max_desired_fps",
			FilenamePattern: "epo.ini",
			Section:         "Main",
			Key:             "iMaxDesired",
			Evaluate: func(value string, present bool) (Issue, bool) {
				n, err := strconv.Atoi(value)
				if !present || err != nil || n <= 5000 {
					return Issue{}, false
				}
				return Issue{
					Section: "Main", Key: "iMaxDesired",
					CurrentValue: value, RecommendedValue: "5000", Severity: SeverityWarning,
					Description: "iMaxDesired above 5000 can destabilise the havok engine timestep; lower it.",
				}, true
			},
		},
		{
			Name:            "unlock_head_parts",
			FilenamePattern: "f4ee.ini",
			Section:         "General",
			Key:             "bUnlockHeadParts",
			Evaluate: func(value string, present bool) (Issue, bool) {
				if !present || value != "0" {
					return Issue{}, false
				}
				return Issue{
					Section: "General", Key: "bUnlockHeadParts",
					CurrentValue: value, RecommendedValue: "1", Severity: SeverityInfo,
					Description: "bUnlockHeadParts=0 hides headparts added by mods not on the game's base whitelist.",
				}, true
			},
		},
		{
			Name:            "unlock_tints",
			FilenamePattern: "f4ee.ini",
			Section:         "General",
			Key:             "bUnlockTints",
			Evaluate: func(value string, present bool) (Issue, bool) {
				if !present || value != "0" {
					return Issue{}, false
				}
				return Issue{
					Section: "General", Key: "bUnlockTints",
					CurrentValue: value, RecommendedValue: "1", Severity: SeverityInfo,
					Description: "bUnlockTints=0 hides tints added by mods not on the game's base whitelist.",
				}, true
			},
		},
		{
			Name:            "loading_screen_fps",
			FilenamePattern: "highfpsphysicsfix.ini",
			Section:         "Main",
			Key:             "LoadingScreenFPS",
			Evaluate: func(value string, present bool) (Issue, bool) {
				n, err := strconv.ParseFloat(value, 64)
				if !present || err != nil || n >= loadingScreenFPSThreshold {
					return Issue{}, false
				}
				return Issue{
					Section: "Main", Key: "LoadingScreenFPS",
					CurrentValue: value, Severity: SeverityWarning,
					Description: "LoadingScreenFPS below the configured threshold can stall asset streaming during loads.",
				}, true
			},
		},
		{
			Name:            "commented_hotkey",
			FilenamePattern: "espexplorer.ini",
			Section:         "General",
			Key:             "Hotkey",
			Evaluate: func(value string, present bool) (Issue, bool) {
				if present {
					return Issue{}, false
				}
				return Issue{
					Section: "General", Key: "Hotkey",
					RecommendedValue: "0x79", Severity: SeverityInfo,
					Description: "Hotkey is commented out in espexplorer.ini; uncomment with the recommended value to enable the console command explorer.",
				}, true
			},
		},
	}
}

// Scan evaluates every rule against every INI file discovered under dir,
// continuing past parse errors per file. A file matched by both
// console-command rules (e.g. fallout4custom.ini) reports one issue.
func Scan(ctx context.Context, cache *Cache, dir string, rules []Rule, progress func(path string)) (*ScanResult, error) {
	files, err := discoverIniFiles(dir)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{}
	for _, file := range files {
		select {
		case <-ctx.Done():
			return result, scanerrors.Wrap(scanerrors.KindCancelled, "iniconfig.Scan", ctx.Err())
		default:
		}
		if progress != nil {
			progress(file)
		}

		doc, err := cache.Load(file)
		if err != nil {
			result.ParseErrorFiles = append(result.ParseErrorFiles, file)
			continue
		}
		if len(doc.ParseErrors) > 0 {
			result.ParseErrorFiles = append(result.ParseErrorFiles, file)
		}

		base := filepath.Base(file)
		consoleReported := false
		for _, rule := range rules {
			if !matchesFilename(rule.FilenamePattern, base) {
				continue
			}
			value, present := doc.Get(rule.Section, rule.Key)
			issue, found := rule.Evaluate(value, present)
			if !found {
				continue
			}
			isConsole := rule.Name == "console_command_present" || rule.Name == "console_command_present_custom"
			if isConsole && consoleReported {
				continue
			}
			issue.FilePath = file
			issue.FileName = base
			result.Issues = append(result.Issues, issue)
			switch rule.Name {
			case "console_command_present", "console_command_present_custom":
				result.ConsoleCommandIssues = append(result.ConsoleCommandIssues, issue)
				consoleReported = true
			case "force_vsync_enblocal", "enable_vsync_highfps":
				result.VSyncIssues = append(result.VSyncIssues, issue)
			}
		}
	}
	return result, nil
}

// ScanResult aggregates per-file issues discovered by Scan.
type ScanResult struct {
	Issues               []Issue
	ConsoleCommandIssues []Issue
	VSyncIssues          []Issue
	ParseErrorFiles      []string
}

func (r *ScanResult) HasIssues() bool {
	return len(r.Issues) > 0 || len(r.ParseErrorFiles) > 0
}

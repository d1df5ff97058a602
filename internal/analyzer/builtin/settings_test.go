package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
)

func TestSettingsAnalyzerFlagsMissingAndLegacy(t *testing.T) {
	a := &SettingsAnalyzer{}
	actx := analyzer.NewContext("crash.log", "", []byte(sampleCrashLog))
	result := a.Analyze(context.Background(), actx)

	if !result.Success {
		t.Fatal("expected success")
	}
	if !strings.Contains(result.Fragment.Content, "ArchiveLimit=true") {
		t.Fatalf("expected legacy ArchiveLimit flagged, got %q", result.Fragment.Content)
	}
	if !strings.Contains(result.Fragment.Content, "F4EE is missing") {
		t.Fatalf("expected missing F4EE flagged, got %q", result.Fragment.Content)
	}
}

func TestSettingsAnalyzerNoIssuesWhenAllPresent(t *testing.T) {
	log := "SETTINGS:\nAchievements: false\nMemoryManager: true\nArchiveLimit: false\nF4EE: true\n\n"
	a := &SettingsAnalyzer{}
	actx := analyzer.NewContext("crash.log", "", []byte(log))
	result := a.Analyze(context.Background(), actx)
	if result.Severity != analyzer.SeverityInfo {
		t.Fatalf("expected no issues, got %+v", result.Fragment)
	}
}

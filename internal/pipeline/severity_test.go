package pipeline

import (
	"testing"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
)

func result(sev analyzer.Severity, success bool) analyzer.Result {
	return analyzer.Result{Success: success, Severity: sev}
}

func TestOverallSeverityEscalatesOnSingleCritical(t *testing.T) {
	results := []analyzer.Result{
		result(analyzer.SeverityInfo, true),
		result(analyzer.SeverityInfo, true),
		result(analyzer.SeverityCritical, true),
	}
	if got := OverallSeverity(results); got != analyzer.SeverityCritical {
		t.Fatalf("expected Critical, got %s", got)
	}
}

func TestOverallSeverityIgnoresFailedResults(t *testing.T) {
	results := []analyzer.Result{
		result(analyzer.SeverityCritical, false),
		result(analyzer.SeverityInfo, true),
	}
	if got := OverallSeverity(results); got != analyzer.SeverityInfo {
		t.Fatalf("expected Info (failed Critical result excluded), got %s", got)
	}
}

func TestOverallSeverityAllInfoStaysInfo(t *testing.T) {
	results := []analyzer.Result{result(analyzer.SeverityInfo, true), result(analyzer.SeverityInfo, true)}
	if got := OverallSeverity(results); got != analyzer.SeverityInfo {
		t.Fatalf("expected Info, got %s", got)
	}
}

func TestOverallSeverityEmptyResultsIsInfo(t *testing.T) {
	if got := OverallSeverity(nil); got != analyzer.SeverityInfo {
		t.Fatalf("expected Info for no results, got %s", got)
	}
}

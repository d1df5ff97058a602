package observability

import "testing"

func TestNewMetricsRegistersWithoutPanicking(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	m.PipelineItemsProcessedTotal.WithLabelValues("load").Inc()
	m.AnalyzerFailuresTotal.WithLabelValues("SettingsAnalyzer").Inc()
	m.ArchiveIssuesTotal.WithLabelValues("format").Inc()
}

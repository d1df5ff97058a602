package report

import (
	"strings"
	"testing"

	"github.com/evildarkarchon/scanner111/internal/fragment"
)

func TestRenderMarkdownContainsTitleAndChildren(t *testing.T) {
	// Invariant: f.ToMarkdown() contains f.title and all child titles
	// transitively.
	child := fragment.Info("Child Title", "child body")
	parent := fragment.WithChildren("Parent Title", []fragment.Fragment{child}, 0)

	md := RenderMarkdown(parent, Options{})
	if !strings.Contains(md, "Parent Title") {
		t.Fatalf("expected markdown to contain parent title, got %q", md)
	}
	if !strings.Contains(md, "Child Title") {
		t.Fatalf("expected markdown to contain child title, got %q", md)
	}
}

func TestRenderMarkdownHeaderLevelCapped(t *testing.T) {
	deep := fragment.Info("Leaf", "x")
	for i := 0; i < 10; i++ {
		deep = fragment.WithChildren("Level", []fragment.Fragment{deep}, 0)
	}
	md := RenderMarkdown(deep, Options{})
	if strings.Contains(md, strings.Repeat("#", 7)) {
		t.Fatalf("expected no header deeper than level 6, got %q", md)
	}
}

func TestRenderJSONShape(t *testing.T) {
	f := fragment.WithChildren("Report", []fragment.Fragment{fragment.Info("x", "y")}, 0)
	out, err := RenderJSON(f, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"title"`) || !strings.Contains(out, `"fragments"`) {
		t.Fatalf("got %q", out)
	}
}

func TestRenderPlainTextUnderlines(t *testing.T) {
	out := RenderPlainText(fragment.WithChildren("Title", []fragment.Fragment{fragment.Info("x", "y")}, 0), Options{})
	if !strings.Contains(out, "Title\n=====") {
		t.Fatalf("got %q", out)
	}
}

func TestComposeReportContinuesAfterFailure(t *testing.T) {
	// Scenario 5: 2 analyzers {OK, Throws}; ContinueOnError=true => final
	// report has section from OK, errors section lists the throw.
	results := []AnalyzerResult{
		{AnalyzerName: "OK", Success: true, Fragment: fragment.Info("OK Analyzer", "all good")},
		{AnalyzerName: "Throws", Success: false, Err: errBoom},
	}
	composed := ComposeReport(results, Options{Title: "Report"})
	md := RenderMarkdown(composed, Options{})
	if !strings.Contains(md, "OK Analyzer") {
		t.Fatalf("expected success section present, got %q", md)
	}
	if !strings.Contains(md, "Errors") || !strings.Contains(md, "Throws") {
		t.Fatalf("expected errors section listing failed analyzer, got %q", md)
	}
}

func TestComposeFromFragmentsSortsByOrder(t *testing.T) {
	fragments := []fragment.Fragment{
		fragment.Info("second", "b"),
		fragment.Error("first", "a"),
	}
	composed := ComposeFromFragments(fragments, Options{SortByOrder: true, Title: "R"})
	if composed.Children[0].Title != "first" {
		t.Fatalf("expected error (order 10) before info (order 200), got %+v", composed.Children)
	}
}

func TestComposeFromFragmentsFiltersVisibility(t *testing.T) {
	hidden := fragment.Conditional(fragment.Info("hidden", "x"), fragment.VisibilityHidden)
	visible := fragment.Info("visible", "y")
	composed := ComposeFromFragments([]fragment.Fragment{hidden, visible}, Options{MinimumVisibility: fragment.VisibilityNormal, Title: "R"})
	if len(composed.Children) != 1 || composed.Children[0].Title != "visible" {
		t.Fatalf("expected hidden fragment filtered out, got %+v", composed.Children)
	}
}

var errBoom = &boomError{}

type boomError struct{}

func (e *boomError) Error() string { return "analyzer threw" }

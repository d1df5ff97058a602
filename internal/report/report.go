// Package report implements the report composer and renderers of spec
// section 4.2: Markdown, HTML, JSON, and PlainText output over a
// fragment.Fragment tree.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evildarkarchon/scanner111/internal/fragment"
)

// Format selects a renderer.
type Format int

const (
	FormatMarkdown Format = iota
	FormatHTML
	FormatJSON
	FormatPlainText
)

// Options controls composition and rendering.
type Options struct {
	Format            Format
	IncludeSkipped    bool
	IncludeTimingInfo bool
	IncludeMetadata   bool
	SortByOrder       bool
	MinimumVisibility fragment.Visibility
	Title             string
}

// AnalyzerResult is the minimal shape the composer needs from a
// pipeline analyzer outcome: its fragment, whether it succeeded, and how
// long it took. The pipeline package supplies the concrete type;
// keeping this local avoids an import cycle between report and
// pipeline.
type AnalyzerResult struct {
	AnalyzerName string
	Fragment     fragment.Fragment
	Success      bool
	Err          error
	Duration     time.Duration
}

// ComposeReport synthesises meta-sections (errors, optional timing) and
// delegates to ComposeFromFragments.
func ComposeReport(results []AnalyzerResult, opts Options) fragment.Fragment {
	var sections []fragment.Fragment
	var errorLines []string

	for _, r := range results {
		if r.Success {
			sections = append(sections, r.Fragment)
			continue
		}
		if r.Err != nil {
			errorLines = append(errorLines, fmt.Sprintf("%s: %v", r.AnalyzerName, r.Err))
		}
	}

	if len(errorLines) > 0 {
		sections = append(sections, fragment.Error("Errors", strings.Join(errorLines, "\n")))
	}

	if opts.IncludeTimingInfo {
		var timingLines []string
		for _, r := range results {
			timingLines = append(timingLines, fmt.Sprintf("%s: %s", r.AnalyzerName, r.Duration))
		}
		sections = append(sections, fragment.Info("Timing", strings.Join(timingLines, "\n")))
	}

	return ComposeFromFragments(sections, opts)
}

// ComposeFromFragments applies visibility filtering and optional
// ordering, then wraps everything under a title header.
func ComposeFromFragments(fragments []fragment.Fragment, opts Options) fragment.Fragment {
	visible := make([]fragment.Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f.Visibility > opts.MinimumVisibility {
			continue
		}
		visible = append(visible, f)
	}

	if opts.SortByOrder {
		sort.SliceStable(visible, func(i, j int) bool { return visible[i].Order < visible[j].Order })
	}

	title := opts.Title
	if title == "" {
		title = "Scanner111 Report"
	}
	return fragment.WithChildren(title, visible, 0)
}

// Render dispatches to the renderer named by opts.Format.
func Render(f fragment.Fragment, opts Options) (string, error) {
	switch opts.Format {
	case FormatHTML:
		return RenderHTML(f, opts), nil
	case FormatJSON:
		return RenderJSON(f, opts)
	case FormatPlainText:
		return RenderPlainText(f, opts), nil
	default:
		return RenderMarkdown(f, opts), nil
	}
}

var typePrefix = map[fragment.Type]string{
	fragment.TypeWarning: "⚠️",
	fragment.TypeError:   "❌",
	fragment.TypeInfo:    "ℹ️",
}

const maxMarkdownHeaderLevel = 6

// RenderMarkdown recursively renders f, capping header depth at 6. A
// single malformed fragment degrades to a placeholder line rather than
// aborting the whole render (spec section 4.2).
func RenderMarkdown(f fragment.Fragment, opts Options) string {
	var b strings.Builder
	renderMarkdownNode(&b, f, 1, opts)
	return b.String()
}

func renderMarkdownNode(b *strings.Builder, f fragment.Fragment, level int, opts Options) {
	defer func() {
		if r := recover(); r != nil {
			b.WriteString("> [unrenderable fragment]\n")
		}
	}()

	if !f.HasContent() {
		return
	}

	if f.Title != "" {
		depth := level
		if depth > maxMarkdownHeaderLevel {
			depth = maxMarkdownHeaderLevel
		}
		prefix := typePrefix[f.Type]
		if prefix != "" {
			prefix += " "
		}
		b.WriteString(strings.Repeat("#", depth))
		b.WriteString(" ")
		b.WriteString(prefix)
		b.WriteString(f.Title)
		b.WriteString("\n\n")
	}

	if f.Content != "" {
		b.WriteString(f.Content)
		b.WriteString("\n\n")
	}

	for _, child := range f.Children {
		renderMarkdownNode(b, child, level+1, opts)
	}
}

// RenderHTML emits a self-contained document with inline CSS classes
// per fragment type.
func RenderHTML(f fragment.Fragment, opts Options) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	b.WriteString("<style>body{font-family:sans-serif}.warning{color:#b8860b}.error{color:#c0392b}.info{color:#2980b9}</style>")
	b.WriteString("</head><body>\n")
	renderHTMLNode(&b, f, 1)
	b.WriteString("</body></html>\n")
	return b.String()
}

func renderHTMLNode(b *strings.Builder, f fragment.Fragment, level int) {
	if !f.HasContent() {
		return
	}
	class := strings.ToLower(f.Type.String())
	if f.Title != "" {
		depth := level
		if depth > maxMarkdownHeaderLevel {
			depth = maxMarkdownHeaderLevel
		}
		fmt.Fprintf(b, "<h%d class=%q>%s</h%d>\n", depth, class, htmlEscape(f.Title), depth)
	}
	if f.Content != "" {
		fmt.Fprintf(b, "<p class=%q>%s</p>\n", class, htmlEscape(f.Content))
	}
	for _, child := range f.Children {
		renderHTMLNode(b, child, level+1)
	}
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// jsonFragment is the wire shape for JSON rendering.
type jsonFragment struct {
	Title    string         `json:"title,omitempty"`
	Content  string         `json:"content,omitempty"`
	Type     string         `json:"type"`
	Order    int            `json:"order"`
	Children []jsonFragment `json:"children,omitempty"`
}

type jsonReport struct {
	Title       string         `json:"title"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Fragments   []jsonFragment `json:"fragments"`
}

// RenderJSON emits {title, generatedAt, fragments:[...]}.
func RenderJSON(f fragment.Fragment, opts Options) (string, error) {
	out := jsonReport{
		Title:       f.Title,
		GeneratedAt: f.CreatedAt,
		Fragments:   toJSONFragments(f.Children),
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toJSONFragments(fragments []fragment.Fragment) []jsonFragment {
	out := make([]jsonFragment, 0, len(fragments))
	for _, f := range fragments {
		if !f.HasContent() {
			continue
		}
		out = append(out, jsonFragment{
			Title:    f.Title,
			Content:  f.Content,
			Type:     f.Type.String(),
			Order:    f.Order,
			Children: toJSONFragments(f.Children),
		})
	}
	return out
}

// RenderPlainText emits title/underline pairs: "=====" under the title,
// "-----" under sections.
func RenderPlainText(f fragment.Fragment, opts Options) string {
	var b strings.Builder
	renderPlainTextNode(&b, f, 0)
	return b.String()
}

func renderPlainTextNode(b *strings.Builder, f fragment.Fragment, depth int) {
	if !f.HasContent() {
		return
	}
	if f.Title != "" {
		b.WriteString(f.Title)
		b.WriteString("\n")
		underline := "-"
		if depth == 0 {
			underline = "="
		}
		b.WriteString(strings.Repeat(underline, len(f.Title)))
		b.WriteString("\n")
	}
	if f.Content != "" {
		b.WriteString(f.Content)
		b.WriteString("\n")
	}
	for _, child := range f.Children {
		renderPlainTextNode(b, child, depth+1)
	}
}

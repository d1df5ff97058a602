// Package tomlconfig implements the TOML validator of spec section 4.4:
// fault-isolated parsing of crash-generator config.toml files, duplicate
// config detection, and the plugin-conflict matrix cross-reference.
package tomlconfig

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// Document is a parsed TOML file as a generic nested map. Key lookup is
// case-sensitive, per spec section 6.
type Document struct {
	Path       string
	Values     map[string]interface{}
	ParseError string
}

// Get looks up a dotted key path (e.g. "Patches.Achievements") in the
// parsed document.
func (d *Document) Get(dottedKey string) (interface{}, bool) {
	parts := strings.Split(dottedKey, ".")
	var cur interface{} = d.Values
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// parse reads and unmarshals a TOML file. Malformed content is reported
// via Document.ParseError rather than an error return — parsing is never
// fatal to the overall scan.
func parse(path string) *Document {
	doc := &Document{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		doc.ParseError = err.Error()
		return doc
	}
	var values map[string]interface{}
	if err := toml.Unmarshal(data, &values); err != nil {
		doc.ParseError = err.Error()
		return doc
	}
	doc.Values = values
	return doc
}

// ConfigIssue mirrors the INI validator's Issue shape for TOML settings
// conflicts (spec section 4.4, "ConfigIssue").
type ConfigIssue struct {
	FilePath         string
	Setting          string
	CurrentValue     string
	RecommendedValue string
	Description      string
}

// Result is the outcome of scanning a crash-generator's TOML config.
type Result struct {
	ConfigFileFound     bool
	HasDuplicateConfigs bool
	ParseErrorFiles     []string
	ConfigIssues        []ConfigIssue
	Documents           []*Document
}

// ConflictRule is one entry of the plugin-conflict matrix: presence of
// PluginDLL in the plugins directory requires Setting == RequiredValue in
// the crash-generator's TOML config.
type ConflictRule struct {
	PluginDLL     string
	Setting       string // dotted key path, e.g. "Patches.Achievements"
	RequiredValue bool
	Description   string
}

// BuiltinConflictMatrix is the fixed plugin-conflict table from spec
// section 4.4.
func BuiltinConflictMatrix() []ConflictRule {
	return []ConflictRule{
		{PluginDLL: "achievements.dll", Setting: "Patches.Achievements", RequiredValue: false,
			Description: "Achievements.dll re-enables the vanilla achievements patch; Patches.Achievements must be false to avoid double-patching."},
		{PluginDLL: "x-cell-fo4.dll", Setting: "MemoryManager", RequiredValue: false,
			Description: "X-Cell replaces the crash-generator's memory manager; MemoryManager must be false."},
		{PluginDLL: "x-cell-fo4.dll", Setting: "HavokMemorySystem", RequiredValue: false,
			Description: "X-Cell replaces the crash-generator's Havok memory system; HavokMemorySystem must be false."},
		{PluginDLL: "x-cell-ng2.dll", Setting: "BSTextureStreamerLocalHeap", RequiredValue: false,
			Description: "X-Cell NG2 replaces the texture streamer local heap; BSTextureStreamerLocalHeap must be false."},
		{PluginDLL: "f4ee.dll", Setting: "Compatibility.F4EE", RequiredValue: true,
			Description: "Looks Menu (F4EE) requires Compatibility.F4EE=true to apply its compatibility shims."},
	}
}

// redundantXCellDLLs are memory-manager mods made redundant (and
// conflicting) by the presence of any X-Cell variant.
var redundantXCellDLLs = []string{"bakascrapheap.dll"}
var xCellDLLs = []string{"x-cell-fo4.dll", "x-cell-ng2.dll"}

// crashGenConfigPaths returns the two conventional config locations for a
// crash generator name, e.g. "Buffout4/config.toml" and "Buffout4.toml".
func crashGenConfigPaths(pluginsDir, crashGenName string) (nested, flat string) {
	nested = filepath.Join(pluginsDir, crashGenName, "config.toml")
	flat = filepath.Join(pluginsDir, crashGenName+".toml")
	return
}

// Scan validates the crash generator's TOML config against the
// plugin-conflict matrix. isFallout4 gates the settings-conflict check
// entirely (spec section 4.4: "Non-Fallout-4 target skips the
// settings-conflict check").
func Scan(ctx context.Context, pluginsDir, crashGenName string, isFallout4 bool, matrix []ConflictRule, progress func(string)) (*Result, error) {
	result := &Result{}

	nested, flat := crashGenConfigPaths(pluginsDir, crashGenName)
	var docs []*Document
	for _, path := range []string{nested, flat} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		select {
		case <-ctx.Done():
			return result, scanerrors.Wrap(scanerrors.KindCancelled, "tomlconfig.Scan", ctx.Err())
		default:
		}
		if progress != nil {
			progress(path)
		}
		doc := parse(path)
		result.ConfigFileFound = true
		if doc.ParseError != "" {
			result.ParseErrorFiles = append(result.ParseErrorFiles, path)
		}
		docs = append(docs, doc)
	}
	result.Documents = docs

	if len(docs) == 2 {
		result.HasDuplicateConfigs = true
	}

	if !isFallout4 || len(docs) == 0 {
		return result, nil
	}

	dlls, err := discoverPluginDLLs(pluginsDir)
	if err != nil {
		return result, err
	}
	present := make(map[string]bool, len(dlls))
	for _, name := range dlls {
		present[strings.ToLower(name)] = true
	}

	hasXCell := false
	for _, dll := range xCellDLLs {
		if present[dll] {
			hasXCell = true
		}
	}
	if hasXCell {
		for _, dll := range redundantXCellDLLs {
			if present[dll] {
				result.ConfigIssues = append(result.ConfigIssues, ConfigIssue{
					FilePath:    pluginsDir,
					Setting:     dll,
					Description: dll + " duplicates memory management already provided by X-Cell; remove it to avoid conflicts.",
				})
			}
		}
	}

	for _, rule := range matrix {
		if !present[strings.ToLower(rule.PluginDLL)] {
			continue
		}
		for _, doc := range docs {
			if doc.ParseError != "" {
				continue
			}
			raw, ok := doc.Get(rule.Setting)
			if !ok {
				continue
			}
			current, _ := raw.(bool)
			if current != rule.RequiredValue {
				result.ConfigIssues = append(result.ConfigIssues, ConfigIssue{
					FilePath:         doc.Path,
					Setting:          lastSegment(rule.Setting),
					CurrentValue:     boolString(current),
					RecommendedValue: boolString(rule.RequiredValue),
					Description:      rule.Description,
				})
			}
		}
	}

	return result, nil
}

func lastSegment(dotted string) string {
	parts := strings.Split(dotted, ".")
	return parts[len(parts)-1]
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func discoverPluginDLLs(pluginsDir string) ([]string, error) {
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, scanerrors.Wrap(scanerrors.KindTransientIO, "tomlconfig.discoverPluginDLLs", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".dll") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

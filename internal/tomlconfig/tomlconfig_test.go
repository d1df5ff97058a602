package tomlconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestScanDetectsPluginConflict(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "achievements.dll"), []byte{}, 0o644)

	buffoutDir := filepath.Join(dir, "Buffout4")
	os.MkdirAll(buffoutDir, 0o755)
	os.WriteFile(filepath.Join(buffoutDir, "config.toml"), []byte("[Patches]\nAchievements = true\n"), 0o644)

	result, err := Scan(context.Background(), dir, "Buffout4", true, BuiltinConflictMatrix(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.ConfigIssues) != 1 {
		t.Fatalf("expected exactly one issue, got %d: %+v", len(result.ConfigIssues), result.ConfigIssues)
	}
	issue := result.ConfigIssues[0]
	if issue.Setting != "Achievements" || issue.CurrentValue != "True" || issue.RecommendedValue != "False" {
		t.Fatalf("unexpected issue: %+v", issue)
	}
}

func TestScanDetectsDuplicateConfigs(t *testing.T) {
	dir := t.TempDir()
	buffoutDir := filepath.Join(dir, "Buffout4")
	os.MkdirAll(buffoutDir, 0o755)
	os.WriteFile(filepath.Join(buffoutDir, "config.toml"), []byte("[Patches]\nAchievements = false\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "Buffout4.toml"), []byte("[Patches]\nAchievements = false\n"), 0o644)

	result, err := Scan(context.Background(), dir, "Buffout4", true, BuiltinConflictMatrix(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HasDuplicateConfigs {
		t.Fatal("expected duplicate configs detected")
	}
}

func TestScanToleratesMalformedToml(t *testing.T) {
	dir := t.TempDir()
	buffoutDir := filepath.Join(dir, "Buffout4")
	os.MkdirAll(buffoutDir, 0o755)
	os.WriteFile(filepath.Join(buffoutDir, "config.toml"), []byte("this is not [ valid toml"), 0o644)

	result, err := Scan(context.Background(), dir, "Buffout4", true, BuiltinConflictMatrix(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.ConfigFileFound {
		t.Fatal("expected ConfigFileFound=true even on parse error")
	}
	if len(result.ParseErrorFiles) != 1 {
		t.Fatalf("expected 1 parse error file, got %d", len(result.ParseErrorFiles))
	}
}

func TestScanSkipsNonFallout4Target(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "achievements.dll"), []byte{}, 0o644)
	buffoutDir := filepath.Join(dir, "Buffout4")
	os.MkdirAll(buffoutDir, 0o755)
	os.WriteFile(filepath.Join(buffoutDir, "config.toml"), []byte("[Patches]\nAchievements = true\n"), 0o644)

	result, err := Scan(context.Background(), dir, "Buffout4", false, BuiltinConflictMatrix(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.ConfigIssues) != 0 {
		t.Fatalf("expected no issues for non-Fallout4 target, got %+v", result.ConfigIssues)
	}
}

package iniconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseTolerant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fallout4custom.ini")
	content := "[General]\nsStartingConsoleCommand=help\n; a comment\nbroken line without equals\n"
	os.WriteFile(path, []byte(content), 0o644)

	cache := NewCache()
	doc, err := cache.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	val, ok := doc.Get("general", "sstartingconsolecommand")
	if !ok || val != "help" {
		t.Fatalf("got (%q, %v)", val, ok)
	}
	if len(doc.ParseErrors) != 1 {
		t.Fatalf("expected 1 parse error, got %d", len(doc.ParseErrors))
	}
}

func TestScanConsoleCommandIssue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fallout4custom.ini")
	os.WriteFile(path, []byte("[General]\nsStartingConsoleCommand=help\n"), 0o644)

	cache := NewCache()
	result, err := Scan(context.Background(), cache, dir, BuiltinRules(30), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.ConsoleCommandIssues) != 1 {
		t.Fatalf("expected exactly one console command issue, got %d", len(result.ConsoleCommandIssues))
	}
	if result.ConsoleCommandIssues[0].CurrentValue != "help" {
		t.Fatalf("got %q", result.ConsoleCommandIssues[0].CurrentValue)
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache()
	result, err := Scan(context.Background(), cache, dir, BuiltinRules(30), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.HasIssues() {
		t.Fatalf("expected no issues in empty dir, got %+v", result)
	}
}

func TestScanNonExistentDirectory(t *testing.T) {
	cache := NewCache()
	result, err := Scan(context.Background(), cache, filepath.Join(t.TempDir(), "missing"), BuiltinRules(30), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.HasIssues() {
		t.Fatalf("expected no issues, got %+v", result)
	}
}

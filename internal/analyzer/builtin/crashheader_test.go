package builtin

import (
	"context"
	"testing"

	"github.com/evildarkarchon/scanner111/internal/analyzer"
)

const sampleCrashLog = `Fallout 4 v1.10.163
Buffout4 v1.28.6

MAIN THREAD

SETTINGS:
Achievements: true
MemoryManager: false
ArchiveLimit: true

PLUGINS:
[00:000] Fallout4.esm
[FE:001] SomeMod.esp
`

func TestCrashHeaderAnalyzerExtractsVersions(t *testing.T) {
	a := &CrashHeaderAnalyzer{}
	actx := analyzer.NewContext("crash.log", "", []byte(sampleCrashLog))
	result := a.Analyze(context.Background(), actx)

	if !result.Success {
		t.Fatalf("expected success, got errors %v", result.Errors)
	}
	v, ok := actx.Get(SharedKeyGameVersion)
	if !ok || v != "1.10.163" {
		t.Fatalf("expected game version published, got %v", v)
	}
	cv, ok := actx.Get(SharedKeyCrashGenVersion)
	if !ok || cv != "1.28.6" {
		t.Fatalf("expected crashgen version published, got %v", cv)
	}
}

func TestCrashHeaderAnalyzerFailsOnMissingHeader(t *testing.T) {
	a := &CrashHeaderAnalyzer{}
	actx := analyzer.NewContext("crash.log", "", []byte("garbage\nno header here\n"))
	result := a.Analyze(context.Background(), actx)
	if result.Success {
		t.Fatal("expected failure for unrecognisable header")
	}
}

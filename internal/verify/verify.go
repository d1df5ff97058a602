// Package verify implements a scan-run verification kernel that enforces
// invariants on completed analysis runs before they are persisted to the
// history ledger: bounded severity, monotonic timestamps, a non-empty
// audit trail, and a chained cryptographic hash so two runs over the
// same input can be diffed for reproducibility.
//
// Each accepted run is hashed together with the previous accepted run's
// hash (a SHA256 chain over JSON-canonicalised fields), so the ledger
// can later prove no record was altered or reordered out of band.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ViolationKind classifies a verification failure.
type ViolationKind string

const (
	ViolationUnboundedSeverity ViolationKind = "unbounded_severity"
	ViolationNonMonotonicTime  ViolationKind = "non_monotonic_time"
	ViolationMissingAuditTrail ViolationKind = "missing_audit_trail"
	ViolationNegativeDuration  ViolationKind = "negative_duration"
)

// Violation represents a single verification failure.
type Violation struct {
	Kind      ViolationKind
	Message   string
	Timestamp time.Time
}

func (v *Violation) Error() string {
	return fmt.Sprintf("scan verification violation [%s]: %s", v.Kind, v.Message)
}

// Severities enumerates the only overall-severity strings a scan run may
// report, mirroring analyzer.Severity's String() output.
var Severities = map[string]bool{"Info": true, "Warning": true, "Error": true, "Critical": true}

// Run is the minimal shape of a completed scan run subject to
// verification. FragmentCount and Duration come from the same fields
// persisted in history.RunRecord.
type Run struct {
	Timestamp       time.Time
	InputPath       string
	OverallSeverity string
	FragmentCount   int
	Duration        time.Duration
}

// VerifiedRun is a Run augmented with its verification hash chain.
type VerifiedRun struct {
	Run
	DecisionHash string
	ParentHash   string
}

// Kernel enforces invariants on a sequence of scan runs and chains their
// hashes. A Kernel is not safe for concurrent Verify calls from
// unrelated goroutines expecting independent chains — use one Kernel
// per scanning session.
type Kernel struct {
	mu               sync.Mutex
	lastTimestamp    time.Time
	lastDecisionHash string
	violationCount   int64
	verifiedCount    int64
	logger           *zap.Logger
}

// NewKernel constructs a Kernel. A nil logger is replaced with a no-op
// logger.
func NewKernel(logger *zap.Logger) *Kernel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kernel{logger: logger}
}

// Verify checks run against the kernel's invariants and, if it passes,
// returns a VerifiedRun with its hash linked to the previous verified
// run (empty ParentHash for the first run in the chain). Returns a
// *Violation on any invariant failure; the kernel's internal state is
// unchanged on failure so a caller may retry with a corrected run.
func (k *Kernel) Verify(run Run) (VerifiedRun, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !Severities[run.OverallSeverity] {
		return VerifiedRun{}, k.violation(&Violation{
			Kind:      ViolationUnboundedSeverity,
			Message:   fmt.Sprintf("overall severity %q is not one of Info|Warning|Error|Critical", run.OverallSeverity),
			Timestamp: time.Now(),
		})
	}
	if !k.lastTimestamp.IsZero() && run.Timestamp.Before(k.lastTimestamp) {
		return VerifiedRun{}, k.violation(&Violation{
			Kind:      ViolationNonMonotonicTime,
			Message:   fmt.Sprintf("run timestamp %v precedes previous run %v", run.Timestamp, k.lastTimestamp),
			Timestamp: time.Now(),
		})
	}
	if run.Duration < 0 {
		return VerifiedRun{}, k.violation(&Violation{
			Kind:      ViolationNegativeDuration,
			Message:   fmt.Sprintf("run duration %v is negative", run.Duration),
			Timestamp: time.Now(),
		})
	}
	if run.FragmentCount == 0 && run.OverallSeverity != "Info" {
		return VerifiedRun{}, k.violation(&Violation{
			Kind:      ViolationMissingAuditTrail,
			Message:   "non-info run produced zero fragments",
			Timestamp: time.Now(),
		})
	}

	hash, err := canonicalHash(run, k.lastDecisionHash)
	if err != nil {
		return VerifiedRun{}, fmt.Errorf("verify: hashing run: %w", err)
	}

	vr := VerifiedRun{Run: run, DecisionHash: hash, ParentHash: k.lastDecisionHash}
	k.lastDecisionHash = hash
	k.lastTimestamp = run.Timestamp
	k.verifiedCount++

	k.logger.Debug("scan run verified",
		zap.String("input_path", run.InputPath),
		zap.String("hash", hash[:16]),
		zap.Int64("verified_count", k.verifiedCount),
	)

	return vr, nil
}

func (k *Kernel) violation(v *Violation) error {
	k.violationCount++
	k.logger.Warn("scan verification violation",
		zap.String("kind", string(v.Kind)),
		zap.String("message", v.Message),
	)
	return v
}

func canonicalHash(run Run, parentHash string) (string, error) {
	canonical := map[string]any{
		"input_path":       run.InputPath,
		"timestamp":        run.Timestamp.UnixNano(),
		"overall_severity": run.OverallSeverity,
		"fragment_count":   run.FragmentCount,
		"duration_ns":      run.Duration.Nanoseconds(),
		"parent_hash":      parentHash,
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Stats reports kernel counters.
type Stats struct {
	VerifiedCount  int64
	ViolationCount int64
	LastHash       string
}

// Stats returns the kernel's current counters.
func (k *Kernel) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return Stats{VerifiedCount: k.verifiedCount, ViolationCount: k.violationCount, LastHash: k.lastDecisionHash}
}

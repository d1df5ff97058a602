// Package history persists a compact record per completed analysis run
// to a bbolt database: a trend-reporting supplement the original
// implementation's higher layer implied but the distilled spec does not
// require of the core (SPEC_FULL section C.4). Disabled by default.
//
// Schema (bbolt bucket layout):
//
//	/runs
//	    key:   RFC3339 UTC timestamp, fixed 9-digit fraction  [sortable]
//	    value: JSON-encoded RunRecord
//
//	/meta
//	    key:   "schema_version"
//	    value: "1"
package history

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/evildarkarchon/scanner111/internal/verify"
)

const (
	// SchemaVersion is the current database schema version.
	SchemaVersion = "1"

	bucketRuns = "runs"
	bucketMeta = "meta"
)

// RunRecord is the persisted summary of one completed analysis run.
// DecisionHash/ParentHash are populated when the run was produced through
// a verify.Kernel (internal/verify); they are empty for unverified
// records.
type RunRecord struct {
	Timestamp       time.Time     `json:"timestamp"`
	InputPath       string        `json:"input_path"`
	OverallSeverity string        `json:"overall_severity"`
	FragmentCount   int           `json:"fragment_count"`
	Duration        time.Duration `json:"duration"`
	DecisionHash    string        `json:"decision_hash,omitempty"`
	ParentHash      string        `json:"parent_hash,omitempty"`
}

// Ledger wraps a bbolt database with typed accessors for scan-run
// history.
type Ledger struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path and initialises its
// buckets.
func Open(path string) (*Ledger, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open(%q): %w", path, err)
	}

	l := &Ledger{db: bdb}
	if err := l.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketRuns, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("CreateBucketIfNotExists(%q): %w", name, err)
			}
		}
		meta := tx.Bucket([]byte(bucketMeta))
		if meta.Get([]byte("schema_version")) == nil {
			return meta.Put([]byte("schema_version"), []byte(SchemaVersion))
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("history database initialisation failed: %w", err)
	}

	return l, nil
}

// Close closes the underlying database file.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// runKeyLayout is RFC3339 with a fixed nine-digit fraction. Unlike
// time.RFC3339Nano it never trims trailing zeros, so the byte order of
// keys (the order bbolt iterates in) matches time order.
const runKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

func runKey(t time.Time) []byte {
	return []byte(t.UTC().Format(runKeyLayout))
}

// AppendRun writes a new run record.
func (l *Ledger) AppendRun(rec RunRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("AppendRun marshal: %w", err)
	}
	key := runKey(rec.Timestamp)

	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		return b.Put(key, data)
	})
}

// AppendVerifiedRun runs rec through kernel before writing it, rejecting
// and not persisting records that fail the kernel's invariants. On
// success the stored RunRecord carries its DecisionHash/ParentHash.
func (l *Ledger) AppendVerifiedRun(kernel *verify.Kernel, rec RunRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	vr, err := kernel.Verify(verify.Run{
		Timestamp:       rec.Timestamp,
		InputPath:       rec.InputPath,
		OverallSeverity: rec.OverallSeverity,
		FragmentCount:   rec.FragmentCount,
		Duration:        rec.Duration,
	})
	if err != nil {
		return fmt.Errorf("AppendVerifiedRun: %w", err)
	}
	rec.DecisionHash = vr.DecisionHash
	rec.ParentHash = vr.ParentHash
	return l.AppendRun(rec)
}

// ReadRuns returns all run records in chronological order.
func (l *Ledger) ReadRuns() ([]RunRecord, error) {
	var records []RunRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		return b.ForEach(func(_, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// Package scanerrors implements the error-kind taxonomy shared by every
// Scanner111 subsystem (spec section 7: ERROR HANDLING DESIGN).
//
// Every boundary failure (file IO, parsing, discovery, rate limiting) is
// wrapped into a ScanError carrying one of the fixed Kinds below so callers
// can branch on policy ("is this fatal for the request, or just a logged
// issue?") without inspecting error strings.
package scanerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the policy buckets from spec
// section 7. It is not a type name — many underlying Go error types can
// map to the same Kind.
type Kind int

const (
	// KindUnknown is the zero value; never produced by Wrap.
	KindUnknown Kind = iota

	// KindInvalidInput means the caller supplied a malformed request
	// (empty path, nil options). Fails the request; other requests continue.
	KindInvalidInput

	// KindNotFound means a path/file/registry-key lookup came up empty.
	// Never fatal; surfaced as success=false on the relevant result.
	KindNotFound

	// KindAccessDenied means a permission check failed (open-for-read,
	// open-for-write, registry access). Non-fatal.
	KindAccessDenied

	// KindParseError means malformed file content (INI, TOML, BA2 header).
	// Never fatal; the offending file is recorded and scanning continues.
	KindParseError

	// KindTimeout means an operation exceeded its deadline.
	// Surfaced as analyzer error text "timed out"; request continues.
	KindTimeout

	// KindCancelled means a caller-supplied context was cancelled.
	// Terminal for the cancelled scope only.
	KindCancelled

	// KindTransientIO means an I/O failure that a RetryPolicy may retry.
	KindTransientIO

	// KindCircuitOpen means a call was rejected by an open circuit breaker.
	// Surfaced, not retried automatically.
	KindCircuitOpen

	// KindFatal means an invariant violation or logic bug. Isolated to the
	// request that triggered it; the stage aborts for that request only.
	KindFatal
)

// String returns the taxonomy name, used in log fields and report text.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindParseError:
		return "parse_error"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindTransientIO:
		return "transient_io"
	case KindCircuitOpen:
		return "circuit_open"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ScanError wraps an underlying error with a Kind and the operation name
// that produced it. It implements Unwrap so errors.Is/errors.As see
// through to the original cause.
type ScanError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Wrap builds a ScanError. err may be nil, in which case the resulting
// error still carries Kind and Op (useful for sentinel-style failures that
// have no underlying cause, such as "directory does not exist").
func Wrap(kind Kind, op string, err error) *ScanError {
	return &ScanError{Kind: kind, Op: op, Err: err}
}

// As extracts the *ScanError from err, if any is present in its chain.
func As(err error) (*ScanError, bool) {
	var se *ScanError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) a ScanError, else
// KindUnknown.
func KindOf(err error) Kind {
	if se, ok := As(err); ok {
		return se.Kind
	}
	return KindUnknown
}

// IsRetriable reports whether a Kind is, by default, a reasonable
// candidate for RetryPolicy.Execute's shouldRetry predicate. Cancellation
// is explicitly excluded per spec section 4.5 ("OperationCanceledException
// is never retried").
func IsRetriable(err error) bool {
	switch KindOf(err) {
	case KindTransientIO:
		return true
	case KindCancelled, KindCircuitOpen, KindInvalidInput, KindFatal:
		return false
	default:
		// Errors with no ScanError wrapper (unexpected) are retried by
		// default.
		return !errors.Is(err, ErrCancelled)
	}
}

// ErrCancelled is a sentinel comparable with errors.Is for cancellation
// that did not originate from context.Context directly (e.g. a Debounce
// superseding a pending call).
var ErrCancelled = errors.New("scanerrors: operation cancelled")

// Package pathvalidate implements the Path Validation Service of spec
// section 4.6: a thread-safe, TTL-cached read/write accessibility checker
// with a path-traversal guard, gated by a bounded concurrency semaphore.
package pathvalidate

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// maxConcurrentValidations caps in-flight ValidatePath calls, per spec
// section 4.6 ("Up to 10 concurrent validations gated by a counting
// semaphore").
const maxConcurrentValidations = 10

// DefaultTTL is the default cache lifetime for a validation result.
// Zero disables caching entirely.
const DefaultTTL = 2 * time.Minute

// Result is the outcome of validating a single path.
type Result struct {
	Path         string
	IsValid      bool
	Exists       bool
	CanRead      bool
	CanWrite     bool
	ErrorMessage string
	Issues       []string
}

type cacheEntry struct {
	result  Result
	expires time.Time
}

// Service validates filesystem paths with an ordinal-case-insensitive
// concurrent cache keyed on the normalised path.
type Service struct {
	ttl  time.Duration
	sem  *semaphore.Weighted
	mu   sync.RWMutex
	data map[string]cacheEntry
}

// New constructs a Service. ttl<=0 disables caching (every call re-checks
// the filesystem).
func New(ttl time.Duration) *Service {
	return &Service{
		ttl:  ttl,
		sem:  semaphore.NewWeighted(maxConcurrentValidations),
		data: make(map[string]cacheEntry),
	}
}

// NormalizePath produces a canonical, case-folded cache key for path.
// Idempotent: NormalizePath(NormalizePath(x)) == NormalizePath(x).
func NormalizePath(path string) string {
	cleaned := filepath.Clean(path)
	abs, err := filepath.Abs(cleaned)
	if err == nil {
		cleaned = abs
	}
	return strings.ToLower(cleaned)
}

// ValidatePath checks existence and, optionally, read/write accessibility
// of path. Results are cached for the Service's TTL.
func (s *Service) ValidatePath(ctx context.Context, path string, checkRead, checkWrite bool) (Result, error) {
	if path == "" {
		return Result{}, scanerrors.Wrap(scanerrors.KindInvalidInput, "pathvalidate.ValidatePath", errors.New("empty path"))
	}

	key := NormalizePath(path) + cacheSuffix(checkRead, checkWrite)
	if s.ttl > 0 {
		if cached, ok := s.lookup(key); ok {
			return cached, nil
		}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Result{}, scanerrors.Wrap(scanerrors.KindCancelled, "pathvalidate.ValidatePath", err)
	}
	defer s.sem.Release(1)

	result := s.validate(path, checkRead, checkWrite)

	if s.ttl > 0 {
		s.store(key, result)
	}
	return result, nil
}

func cacheSuffix(checkRead, checkWrite bool) string {
	switch {
	case checkRead && checkWrite:
		return "|rw"
	case checkRead:
		return "|r"
	case checkWrite:
		return "|w"
	default:
		return "|-"
	}
}

func (s *Service) lookup(key string) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.data[key]
	if !ok || time.Now().After(entry.expires) {
		return Result{}, false
	}
	return entry.result, true
}

func (s *Service) store(key string, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cacheEntry{result: result, expires: time.Now().Add(s.ttl)}
}

// ClearCache discards all cached validation results.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]cacheEntry)
}

func (s *Service) validate(path string, checkRead, checkWrite bool) Result {
	result := Result{Path: path}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		result.Exists = true
	case errors.Is(err, fs.ErrNotExist):
		result.Exists = false
	case errors.Is(err, fs.ErrPermission):
		result.Exists = true
		result.Issues = append(result.Issues, "stat: permission denied")
	default:
		result.ErrorMessage = err.Error()
		return result
	}

	if !result.Exists {
		result.IsValid = false
		return result
	}

	if checkRead {
		result.CanRead = s.checkRead(path, info)
		if !result.CanRead {
			result.Issues = append(result.Issues, "read check failed")
		}
	}
	if checkWrite {
		result.CanWrite = s.checkWrite(path, info)
		if !result.CanWrite {
			result.Issues = append(result.Issues, "write check failed")
		}
	}

	result.IsValid = result.Exists && (!checkRead || result.CanRead) && (!checkWrite || result.CanWrite)
	return result
}

// checkRead attempts to open-for-read (files) or enumerate the first entry
// (directories). UnauthorizedAccess/Security-class errors mean no access;
// an IO-class error on an otherwise-openable file is treated as "busy but
// readable" per spec section 4.6.
func (s *Service) checkRead(path string, info fs.FileInfo) bool {
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return false
			}
			return true
		}
		_ = entries
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return false
		}
		// Busy-but-readable: any other IO-class error does not
		// disqualify a read check (spec section 4.6).
		return true
	}
	defer f.Close()

	buf := make([]byte, 1)
	_, err = f.Read(buf)
	return err == nil || errors.Is(err, io.EOF)
}

// checkWrite attempts to open-for-write (files) or temp-file
// creation+deletion (directories).
func (s *Service) checkWrite(path string, info fs.FileInfo) bool {
	if info.IsDir() {
		tmp, err := os.CreateTemp(path, ".scanner111-write-check-*")
		if err != nil {
			return false
		}
		name := tmp.Name()
		tmp.Close()
		os.Remove(name)
		return true
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// IsPathSafe rejects paths containing ".." traversal segments, paths that
// (when a base is given) do not resolve underneath base, and paths
// containing platform-invalid characters.
func IsPathSafe(path string, base string) bool {
	if path == "" {
		return false
	}
	if strings.Contains(filepath.ToSlash(path), "../") || path == ".." || strings.HasSuffix(filepath.ToSlash(path), "/..") {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return false
		}
	}
	if hasInvalidChars(path) {
		return false
	}
	if base == "" {
		return true
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(filepath.Join(base, path))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// hasInvalidChars matches the Windows-invalid character set; harmless on
// other platforms since Bethesda game installs this tool targets are
// Windows-path-shaped even when scanned from a Linux/Proton host.
func hasInvalidChars(path string) bool {
	return strings.ContainsAny(path, "<>\"|?*\x00")
}

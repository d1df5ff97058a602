// Package mmapfile implements the Memory-Mapped File Handler of spec
// section 4.7: a shared mmap pool keyed by (path, access), reference
// counted, with parallel chunked processing and a lazy line iterator.
package mmapfile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// Access controls whether a mapping is read-only or read-write.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

type poolKey struct {
	path   string
	access Access
}

// Handle is a reference-counted view onto a memory-mapped file. Multiple
// Open calls for the same (path, access) share the same underlying
// mapping; the mapping is closed when the last Handle is Released.
type Handle struct {
	pool   *Handler
	key    poolKey
	mapped *mapping
}

type mapping struct {
	mu       sync.Mutex
	data     []byte
	closer   func() error
	refCount int
	file     *os.File
}

// Handler owns the shared pool of mappings for a process. Disposing it
// rejects further Opens and releases every pooled mapping.
type Handler struct {
	mu       sync.Mutex
	mappings map[poolKey]*mapping
	disposed bool
}

// New constructs an empty Handler.
func New() *Handler {
	return &Handler{mappings: make(map[poolKey]*mapping)}
}

// Open returns a Handle onto path, mapped with the given access. A second
// Open for the same (path, access) reuses the existing mapping and bumps
// its reference count.
func (h *Handler) Open(path string, access Access) (*Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disposed {
		return nil, scanerrors.Wrap(scanerrors.KindInvalidInput, "mmapfile.Open", fmt.Errorf("handler disposed"))
	}

	key := poolKey{path: path, access: access}
	if m, ok := h.mappings[key]; ok {
		m.mu.Lock()
		m.refCount++
		m.mu.Unlock()
		return &Handle{pool: h, key: key, mapped: m}, nil
	}

	flag := os.O_RDONLY
	if access == ReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, scanerrors.Wrap(scanerrors.KindNotFound, "mmapfile.Open", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, scanerrors.Wrap(scanerrors.KindTransientIO, "mmapfile.Open", err)
	}

	size := info.Size()
	if size == 0 {
		// A zero-byte file cannot be mapped; expose it as an empty handle
		// instead of failing, so line iteration yields nothing cleanly
		// (spec section 8, "0-byte file" boundary behaviour).
		m := &mapping{data: nil, closer: func() error { return nil }, refCount: 1, file: f}
		h.mappings[key] = m
		return &Handle{pool: h, key: key, mapped: m}, nil
	}

	data, closer, err := platformMap(f, size, access == ReadWrite)
	if err != nil {
		f.Close()
		return nil, scanerrors.Wrap(scanerrors.KindTransientIO, "mmapfile.Open", err)
	}

	m := &mapping{data: data, closer: closer, refCount: 1, file: f}
	h.mappings[key] = m
	return &Handle{pool: h, key: key, mapped: m}, nil
}

// Release decrements the Handle's mapping reference count, unmapping and
// closing the underlying file once it reaches zero.
func (h *Handle) Release() error {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()

	m := h.mapped
	m.mu.Lock()
	m.refCount--
	remaining := m.refCount
	m.mu.Unlock()

	if remaining > 0 {
		return nil
	}

	delete(h.pool.mappings, h.key)
	var err error
	if m.closer != nil {
		err = m.closer()
	}
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Size returns the length of the mapped region.
func (h *Handle) Size() int64 { return int64(len(h.mapped.data)) }

// Read returns a copy of length bytes starting at offset, bounds-checked.
func (h *Handle) Read(offset, length int64) ([]byte, error) {
	data := h.mapped.data
	if offset < 0 || length < 0 || offset+length > int64(len(data)) {
		return nil, scanerrors.Wrap(scanerrors.KindInvalidInput, "mmapfile.Read", fmt.Errorf("range [%d,%d) out of bounds for size %d", offset, offset+length, len(data)))
	}
	out := make([]byte, length)
	copy(out, data[offset:offset+length])
	return out, nil
}

// Write copies b into the mapping at offset. Requires the Handle to have
// been opened with ReadWrite access.
func (h *Handle) Write(offset int64, b []byte) error {
	if h.key.access != ReadWrite {
		return scanerrors.Wrap(scanerrors.KindInvalidInput, "mmapfile.Write", fmt.Errorf("handle opened read-only"))
	}
	data := h.mapped.data
	if offset < 0 || offset+int64(len(b)) > int64(len(data)) {
		return scanerrors.Wrap(scanerrors.KindInvalidInput, "mmapfile.Write", fmt.Errorf("write out of bounds"))
	}
	copy(data[offset:], b)
	return nil
}

// ChunkResult pairs a chunk's byte range with the processor's output.
type ChunkResult struct {
	Offset int64
	Length int64
	Value  interface{}
}

// ProcessFileInParallel partitions the mapped region into
// roughly-chunkSizeKb chunks, runs processor concurrently over each
// (honouring ctx cancellation between chunks), then feeds the ordered
// results into aggregator.
func (h *Handle) ProcessFileInParallel(
	ctx context.Context,
	chunkSizeKb int,
	processor func(ctx context.Context, chunk []byte) (interface{}, error),
	aggregator func(results []ChunkResult) error,
) error {
	if chunkSizeKb <= 0 {
		chunkSizeKb = 64
	}
	chunkSize := int64(chunkSizeKb) * 1024
	total := int64(len(h.mapped.data))
	if total == 0 {
		return aggregator(nil)
	}

	type job struct {
		index  int
		offset int64
		length int64
	}
	var jobs []job
	for offset, idx := int64(0), 0; offset < total; offset, idx = offset+chunkSize, idx+1 {
		length := chunkSize
		if offset+length > total {
			length = total - offset
		}
		jobs = append(jobs, job{index: idx, offset: offset, length: length})
	}

	results := make([]ChunkResult, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for _, j := range jobs {
		j := j
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
				errs[j.index] = ctx.Err()
				return
			default:
			}
			chunk := h.mapped.data[j.offset : j.offset+j.length]
			value, err := processor(ctx, chunk)
			if err != nil {
				errs[j.index] = err
				return
			}
			results[j.index] = ChunkResult{Offset: j.offset, Length: j.length, Value: value}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return scanerrors.Wrap(scanerrors.KindCancelled, "mmapfile.ProcessFileInParallel", err)
		}
	}
	return aggregator(results)
}

// ReadLines returns a lazy iterator over the mapped content decoded with
// enc (nil defaults to UTF-8), recognising \n, \r\n and \r line
// terminators. Cancelling ctx stops iteration at the next line boundary.
func (h *Handle) ReadLines(ctx context.Context, enc encoding.Encoding) func(yield func(string, error) bool) {
	if enc == nil {
		enc = unicode.UTF8
	}
	decoder := enc.NewDecoder()

	return func(yield func(string, error) bool) {
		reader := bufio.NewReader(bytes.NewReader(h.mapped.data))
		for {
			select {
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			default:
			}

			line, err := readOneLine(reader)
			if line == "" && err == io.EOF {
				return
			}
			decoded, decodeErr := decoder.String(line)
			if decodeErr != nil {
				decoded = line
			}
			if !yield(decoded, nil) {
				return
			}
			if err == io.EOF {
				return
			}
		}
	}
}

// readOneLine reads up to and including the next \n, \r\n, or \r
// terminator, stripping it from the returned text.
func readOneLine(r *bufio.Reader) (string, error) {
	var buf bytes.Buffer
	for {
		b, err := r.ReadByte()
		if err != nil {
			return buf.String(), io.EOF
		}
		if b == '\n' {
			return buf.String(), nil
		}
		if b == '\r' {
			next, peekErr := r.Peek(1)
			if peekErr == nil && len(next) == 1 && next[0] == '\n' {
				r.ReadByte()
			}
			return buf.String(), nil
		}
		buf.WriteByte(b)
	}
}

// Dispose rejects further Opens and releases all pooled mappings,
// regardless of outstanding reference counts.
func (h *Handler) Dispose() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.disposed = true
	var firstErr error
	for key, m := range h.mappings {
		if m.closer != nil {
			if err := m.closer(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := m.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(h.mappings, key)
	}
	return firstErr
}

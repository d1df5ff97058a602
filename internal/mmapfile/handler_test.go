package mmapfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenReadWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := New()
	defer h.Dispose()

	handle, err := h.Open(path, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer handle.Release()

	got, err := handle.Read(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestOpenSharesMappingByRefCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	os.WriteFile(path, []byte("abc"), 0o644)

	h := New()
	defer h.Dispose()

	h1, err := h.Open(path, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := h.Open(path, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	if h1.mapped != h2.mapped {
		t.Fatal("expected shared mapping for equal (path, access)")
	}
	h1.Release()
	h2.Release()
}

func TestReadOutOfBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	os.WriteFile(path, []byte("abc"), 0o644)

	h := New()
	defer h.Dispose()
	handle, _ := h.Open(path, ReadOnly)
	defer handle.Release()

	if _, err := handle.Read(0, 100); err == nil {
		t.Fatal("expected bounds error")
	}
}

func TestZeroByteFileYieldsNoLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	os.WriteFile(path, nil, 0o644)

	h := New()
	defer h.Dispose()
	handle, err := h.Open(path, ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer handle.Release()

	count := 0
	handle.ReadLines(context.Background(), nil)(func(line string, err error) bool {
		count++
		return true
	})
	if count != 0 {
		t.Fatalf("expected no lines, got %d", count)
	}
}

func TestReadLinesHandlesAllTerminators(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lines.txt")
	os.WriteFile(path, []byte("a\nb\r\nc\rd"), 0o644)

	h := New()
	defer h.Dispose()
	handle, _ := h.Open(path, ReadOnly)
	defer handle.Release()

	var lines []string
	handle.ReadLines(context.Background(), nil)(func(line string, err error) bool {
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, line)
		return true
	})

	want := []string{"a", "b", "c", "d"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, lines[i], want[i])
		}
	}
}

func TestProcessFileInParallelAggregates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.bin")
	data := make([]byte, 256*1024)
	for i := range data {
		data[i] = byte(i % 7)
	}
	os.WriteFile(path, data, 0o644)

	h := New()
	defer h.Dispose()
	handle, _ := h.Open(path, ReadOnly)
	defer handle.Release()

	var totalLen int64
	err := handle.ProcessFileInParallel(context.Background(), 64,
		func(ctx context.Context, chunk []byte) (interface{}, error) {
			return len(chunk), nil
		},
		func(results []ChunkResult) error {
			for _, r := range results {
				totalLen += int64(r.Value.(int))
			}
			return nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if totalLen != int64(len(data)) {
		t.Fatalf("got %d, want %d", totalLen, len(data))
	}
}

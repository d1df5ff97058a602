// Package archive implements the BA2/BTDX binary archive scanner of spec
// section 4.3: header parsing, recursive discovery, and concurrent
// full-directory scans.
package archive

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// Format identifies the BA2 archive's content family from its 4-byte tag.
type Format int

const (
	FormatUnknown Format = iota
	FormatGeneral
	FormatTexture
)

func (f Format) String() string {
	switch f {
	case FormatGeneral:
		return "General"
	case FormatTexture:
		return "Texture"
	default:
		return "Unknown"
	}
}

// HeaderInfo is the parsed form of a BA2/BTDX file's first 12 bytes (spec
// section 6).
type HeaderInfo struct {
	IsValid bool
	Format  Format
	Version uint32
}

const (
	headerSize = 12
	magicBTDX  = "BTDX"
	tagGeneral = "GNRL"
	tagTexture = "DX10"
)

// ReadHeader reads exactly the first 12 bytes of r and parses the BA2/BTDX
// header. Fewer than 12 bytes available, a wrong magic, a zero version,
// or an unrecognised format tag all yield an invalid result rather than
// an error — spec section 3 makes "invalid" a first-class value, not a
// failure mode.
func ReadHeader(r io.Reader) (HeaderInfo, error) {
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return HeaderInfo{}, scanerrors.Wrap(scanerrors.KindTransientIO, "archive.ReadHeader", err)
	}
	if n < headerSize {
		return HeaderInfo{IsValid: false, Format: FormatUnknown}, nil
	}

	if string(buf[0:4]) != magicBTDX {
		return HeaderInfo{IsValid: false, Format: FormatUnknown}, nil
	}

	version := binary.LittleEndian.Uint32(buf[4:8])

	var format Format
	switch string(buf[8:12]) {
	case tagGeneral:
		format = FormatGeneral
	case tagTexture:
		format = FormatTexture
	default:
		return HeaderInfo{IsValid: false, Format: FormatUnknown, Version: version}, nil
	}

	if version == 0 {
		return HeaderInfo{IsValid: false, Format: FormatUnknown, Version: version}, nil
	}

	return HeaderInfo{IsValid: true, Format: format, Version: version}, nil
}

// ReadHeaderFile opens path and reads its header.
func ReadHeaderFile(path string) (HeaderInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return HeaderInfo{}, scanerrors.Wrap(scanerrors.KindNotFound, "archive.ReadHeaderFile", err)
	}
	defer f.Close()
	return ReadHeader(f)
}

// excludedArchiveName is the known previs-repair archive excluded from
// discovery regardless of case, per spec section 4.3.
const excludedArchiveName = "prp - main.ba2"

// FindBA2Files recursively walks root collecting *.ba2 files,
// case-insensitively, excluding excludedArchiveName. A non-existent root
// yields an empty list, never an error.
func FindBA2Files(root string) ([]string, error) {
	if root == "" {
		return nil, scanerrors.Wrap(scanerrors.KindInvalidInput, "archive.FindBA2Files", nil)
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.EqualFold(filepath.Ext(name), ".ba2") {
			return nil
		}
		if strings.EqualFold(name, excludedArchiveName) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, scanerrors.Wrap(scanerrors.KindTransientIO, "archive.FindBA2Files", err)
	}
	return out, nil
}

// FormatIssue is recorded for each archive whose header fails to parse.
type FormatIssue struct {
	ArchivePath string
	ArchiveName string
	HeaderBytes string
}

// ScanResult aggregates issues from a full directory scan. Additional
// analyzers (texture dimensions, XSE-plugins-in-archive) may append their
// own categories; the core guarantees discovery + header protocol only,
// per spec section 4.3.
type ScanResult struct {
	TotalFilesScanned      int
	FormatIssues           []FormatIssue
	TextureDimensionIssues []string
	SoundFormatIssues      []string
	XSEFileIssues          []string
}

func (r *ScanResult) HasIssues() bool {
	return len(r.FormatIssues) > 0 || len(r.TextureDimensionIssues) > 0 ||
		len(r.SoundFormatIssues) > 0 || len(r.XSEFileIssues) > 0
}

// maxConcurrentScans bounds the worker count for a full directory scan.
const maxConcurrentScans = 8

// Scan discovers archives under root and reads each header, recording a
// FormatIssue for any archive that fails to parse. Work is distributed
// across a bounded worker pool; ctx cancellation is checked between
// files.
func Scan(ctx context.Context, root string) (*ScanResult, error) {
	files, err := FindBA2Files(root)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{TotalFilesScanned: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	sem := make(chan struct{}, maxConcurrentScans)
	var wg sync.WaitGroup

	for _, path := range files {
		select {
		case <-ctx.Done():
			wg.Wait()
			return result, scanerrors.Wrap(scanerrors.KindCancelled, "archive.Scan", ctx.Err())
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			header, err := ReadHeaderFile(path)
			if err != nil || !header.IsValid {
				raw, _ := os.ReadFile(path)
				if len(raw) > headerSize {
					raw = raw[:headerSize]
				}
				mu.Lock()
				result.FormatIssues = append(result.FormatIssues, FormatIssue{
					ArchivePath: path,
					ArchiveName: filepath.Base(path),
					HeaderBytes: string(raw),
				})
				mu.Unlock()
			}
		}(path)
	}
	wg.Wait()
	return result, nil
}

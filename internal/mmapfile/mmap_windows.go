//go:build windows

package mmapfile

import (
	"os"

	"golang.org/x/sys/windows"
)

// platformMap memory-maps the file's first size bytes on Windows via
// CreateFileMapping/MapViewOfFile.
func platformMap(f *os.File, size int64, write bool) ([]byte, func() error, error) {
	protect := uint32(windows.PAGE_READONLY)
	access := uint32(windows.FILE_MAP_READ)
	if write {
		protect = windows.PAGE_READWRITE
		access = windows.FILE_MAP_WRITE
	}

	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, protect, 0, uint32(size), nil)
	if err != nil {
		return nil, nil, err
	}

	addr, err := windows.MapViewOfFile(h, access, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return nil, nil, err
	}

	data := unsafeSlice(addr, int(size))
	closer := func() error {
		err1 := windows.UnmapViewOfFile(addr)
		err2 := windows.CloseHandle(h)
		if err1 != nil {
			return err1
		}
		return err2
	}
	return data, closer, nil
}

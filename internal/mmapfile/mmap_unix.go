//go:build !windows

package mmapfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// platformMap memory-maps the file's first size bytes, read-only or
// read-write according to write.
func platformMap(f *os.File, size int64, write bool) ([]byte, func() error, error) {
	prot := unix.PROT_READ
	if write {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	closer := func() error { return unix.Munmap(data) }
	return data, closer, nil
}

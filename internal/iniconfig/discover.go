package iniconfig

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// discoverIniFiles walks dir recursively collecting *.ini files,
// case-insensitively. A non-existent root yields an empty list, never an
// error, matching the archive scanner's discovery contract in spec
// section 4.3.
func discoverIniFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".ini") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, scanerrors.Wrap(scanerrors.KindTransientIO, "iniconfig.discoverIniFiles", err)
	}
	return out, nil
}

// Package integrity implements the Mod/Plugin Integrity Checks of spec
// section 4.8: archive-invalidation presence, Script-Extender presence,
// Address Library presence, and semantic version comparison.
package integrity

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ArchiveInvalidationCheck validates that bInvalidateOlderFiles=1 is set
// under [Archive] in the custom ini. It never mutates the file itself —
// callers use Missing() to decide whether to insert the setting via their
// own ini-writing path.
type ArchiveInvalidationCheck struct {
	Present bool
}

// Missing reports whether the setting needs to be inserted.
func (c ArchiveInvalidationCheck) Missing() bool { return !c.Present }

// CheckArchiveInvalidation inspects an already-parsed ini value lookup
// function (kept generic so callers can pass iniconfig.Cache.GetValue or
// a stub in tests) for [Archive] bInvalidateOlderFiles=1.
func CheckArchiveInvalidation(getValue func(section, key string) (string, bool)) ArchiveInvalidationCheck {
	value, ok := getValue("Archive", "bInvalidateOlderFiles")
	return ArchiveInvalidationCheck{Present: ok && value == "1"}
}

// ScriptExtenderCheck reports whether the XSE loader executable exists
// under the game root.
type ScriptExtenderCheck struct {
	Present        bool
	ExecutablePath string
}

// CheckScriptExtender looks for <gameRoot>/<loaderExecutable>, e.g.
// "f4se_loader.exe" for Fallout 4 or "skse64_loader.exe" for Skyrim SE.
func CheckScriptExtender(gameRoot, loaderExecutable string) ScriptExtenderCheck {
	path := filepath.Join(gameRoot, loaderExecutable)
	_, err := os.Stat(path)
	return ScriptExtenderCheck{Present: err == nil, ExecutablePath: path}
}

// AddressLibraryCheck reports whether a file matching the expected
// Address Library pattern exists under Data/<xseBase>/Plugins.
type AddressLibraryCheck struct {
	Present bool
	Matches []string
}

// CheckAddressLibrary globs Data/<xseBase>/Plugins/<pattern> (e.g.
// "version-*-*-*.bin" or "version-*-*-*.csv") under gameRoot.
func CheckAddressLibrary(gameRoot, xseBase, pattern string) (AddressLibraryCheck, error) {
	dir := filepath.Join(gameRoot, "Data", xseBase, "Plugins")
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return AddressLibraryCheck{}, err
	}
	return AddressLibraryCheck{Present: len(matches) > 0, Matches: matches}, nil
}

// CompareVersions orders two dotted-integer version strings using
// semantic-version rules. Unparseable versions sort below any parseable
// one (spec section 4.8); two unparseable versions compare as plain
// strings. Returns -1, 0, or 1 like strings.Compare.
func CompareVersions(a, b string) int {
	va, errA := parseLenient(a)
	vb, errB := parseLenient(b)

	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	default:
		return va.Compare(vb)
	}
}

// SortVersions sorts versions ascending using CompareVersions.
func SortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
}

// parseLenient accepts bare dotted-integer version strings (e.g. "1.10.162")
// that semver.NewVersion would otherwise reject for missing a patch
// component, padding them to major.minor.patch.
func parseLenient(v string) (*semver.Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(v), "v")
	parts := strings.Split(trimmed, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return semver.NewVersion(strings.Join(parts[:3], "."))
}

// Package gamepath implements the multi-source Game Path Discovery and
// Documents Path Discovery subsystems of spec section 4.6.
package gamepath

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/evildarkarchon/scanner111/internal/pathvalidate"
)

// Method identifies which discovery source produced a successful result.
type Method int

const (
	MethodUnknown Method = iota
	MethodConfiguredPath
	MethodRegistry
	MethodScriptExtenderLog
	MethodSteamLibrary
)

func (m Method) String() string {
	switch m {
	case MethodConfiguredPath:
		return "ConfiguredPath"
	case MethodRegistry:
		return "Registry"
	case MethodScriptExtenderLog:
		return "ScriptExtenderLog"
	case MethodSteamLibrary:
		return "SteamLibrary"
	default:
		return "Unknown"
	}
}

// GamePaths is the bundle of locations discovery produces. All fields are
// optional; callers must check for the empty string before use.
type GamePaths struct {
	GameRoot                  string
	Executable                string
	ScriptExtenderPluginsPath string
	DocumentsPath             string
	GameIni                   string
	GameCustomIni             string
	ScriptExtenderLog         string
	PapyrusLog                string
	SteamAPIIni               string
}

// Result is the outcome of a DiscoverGamePath call.
type Result struct {
	IsSuccess    bool
	Paths        *GamePaths
	Method       Method
	ErrorMessage string
	Elapsed      time.Duration
}

// SettingsProvider exposes the one setting Game Path Discovery needs from
// the (out-of-core) settings layer: a user-configured install path, if any.
type SettingsProvider interface {
	ConfiguredGamePath(gameName string) string
}

// GameProfile names the fixed, game-specific identifiers discovery needs:
// the executable filename, the registry value names, and the XSE base
// directory (e.g. "F4SE" for Fallout 4, "SKSE" for Skyrim SE).
type GameProfile struct {
	Name           string // "Fallout4", "SkyrimSE"
	Executable     string // "Fallout4.exe"
	RegistryGameID string // Bethesda registry subkey, e.g. "Fallout4"
	GogID          string // GOG.com Games subkey
	VR             bool
	XSEBase        string // "F4SE", "SKSE64"
	DocsFolderName string // "Fallout4", "Skyrim Special Edition"
	SteamAppName   string // folder under steamapps/common
	SteamID        string // numeric Steam AppID, for Proton compatdata lookup
}

type cacheEntry struct {
	result  Result
	expires time.Time
}

// Discoverer coordinates the ordered discovery sources and caches results
// per (gameName, vrFlag) for 5 minutes, coalescing concurrent callers for
// the same key via a singleflight group (spec section 4.6).
type Discoverer struct {
	settings  SettingsProvider
	validator *pathvalidate.Service
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
	group singleflight.Group
}

// DefaultTTL is the cache lifetime for a discovery result.
const DefaultTTL = 5 * time.Minute

// New constructs a Discoverer backed by settings for the configured-path
// source, sharing validator for directory existence checks.
func New(settings SettingsProvider, validator *pathvalidate.Service) *Discoverer {
	return &Discoverer{
		settings:  settings,
		validator: validator,
		ttl:       DefaultTTL,
		cache:     make(map[string]cacheEntry),
	}
}

func cacheKey(profile GameProfile) string {
	key := profile.Name
	if profile.VR {
		key += "|VR"
	}
	return key
}

// DiscoverGamePath tries sources in order — configured path, registry,
// Script-Extender log, Steam library — returning on the first validated
// success.
func (d *Discoverer) DiscoverGamePath(ctx context.Context, profile GameProfile) Result {
	key := cacheKey(profile)

	if cached, ok := d.lookup(key); ok {
		return cached
	}

	v, _, _ := d.group.Do(key, func() (interface{}, error) {
		if cached, ok := d.lookup(key); ok {
			return cached, nil
		}
		start := time.Now()
		result := d.discover(ctx, profile)
		result.Elapsed = time.Since(start)
		d.store(key, result)
		return result, nil
	})
	return v.(Result)
}

func (d *Discoverer) lookup(key string) (Result, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.cache[key]
	if !ok || time.Now().After(entry.expires) {
		return Result{}, false
	}
	return entry.result, true
}

func (d *Discoverer) store(key string, result Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[key] = cacheEntry{result: result, expires: time.Now().Add(d.ttl)}
}

func (d *Discoverer) discover(ctx context.Context, profile GameProfile) Result {
	if d.settings != nil {
		if configured := d.settings.ConfiguredGamePath(profile.Name); configured != "" {
			if root, ok := d.validateRoot(ctx, configured, profile); ok {
				return d.success(root, MethodConfiguredPath, profile)
			}
		}
	}

	if runtime.GOOS == "windows" {
		if root, ok := d.fromRegistry(profile); ok {
			if root, ok := d.validateRoot(ctx, root, profile); ok {
				return d.success(root, MethodRegistry, profile)
			}
		}
	}

	if root, ok := d.fromScriptExtenderLog(ctx, profile); ok {
		if root, ok := d.validateRoot(ctx, root, profile); ok {
			return d.success(root, MethodScriptExtenderLog, profile)
		}
	}

	if root, ok := d.fromSteamLibraries(ctx, profile); ok {
		if root, ok := d.validateRoot(ctx, root, profile); ok {
			return d.success(root, MethodSteamLibrary, profile)
		}
	}

	return Result{IsSuccess: false, Method: MethodUnknown, ErrorMessage: "no discovery source located " + profile.Name}
}

// validateRoot confirms the candidate directory exists and the expected
// executable is present underneath it (spec section 4.6's
// "ValidateGamePath").
func (d *Discoverer) validateRoot(ctx context.Context, root string, profile GameProfile) (string, bool) {
	if root == "" {
		return "", false
	}
	res, err := d.validator.ValidatePath(ctx, root, true, false)
	if err != nil || !res.IsValid {
		return "", false
	}
	exe := filepath.Join(root, profile.Executable)
	exeRes, err := d.validator.ValidatePath(ctx, exe, true, false)
	if err != nil || !exeRes.Exists {
		return "", false
	}
	return root, true
}

func (d *Discoverer) success(root string, method Method, profile GameProfile) Result {
	paths := &GamePaths{
		GameRoot:                  root,
		Executable:                filepath.Join(root, profile.Executable),
		ScriptExtenderPluginsPath: filepath.Join(root, "Data", profile.XSEBase, "Plugins"),
	}
	return Result{IsSuccess: true, Paths: paths, Method: method}
}

// scriptExtenderLogPluginDir matches the "plugin directory = ..." line
// format Script-Extender writes to its own log file.
var scriptExtenderLogPluginDir = regexp.MustCompile(`(?i)plugin directory\s*=\s*(.+?)\\Data\\[A-Z0-9]+\\Plugins`)

// fromScriptExtenderLog scans a known XSE log path for the plugin
// directory line and derives the game root from it.
func (d *Discoverer) fromScriptExtenderLog(ctx context.Context, profile GameProfile) (string, bool) {
	logPath := scriptExtenderLogCandidate(profile)
	if logPath == "" {
		return "", false
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		return "", false
	}
	matches := scriptExtenderLogPluginDir.FindSubmatch(content)
	if len(matches) < 2 {
		return "", false
	}
	return strings.TrimSpace(string(matches[1])), true
}

func scriptExtenderLogCandidate(profile GameProfile) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "My Games", profile.DocsFolderName, strings.ToUpper(profile.XSEBase)+".log")
}

// steamLibraryRoots are the conventional Steam install locations checked
// in order on Windows, plus HOME-derived Linux paths.
func steamLibraryRoots() []string {
	roots := []string{
		`C:\Program Files (x86)\Steam`,
		`C:\Program Files\Steam`,
		`D:\Steam`,
		`E:\Steam`,
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots,
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".steam", "steam"),
		)
	}
	return roots
}

func (d *Discoverer) fromSteamLibraries(ctx context.Context, profile GameProfile) (string, bool) {
	for _, base := range steamLibraryRoots() {
		candidate := filepath.Join(base, "steamapps", "common", profile.SteamAppName)
		res, err := d.validator.ValidatePath(ctx, candidate, false, false)
		if err == nil && res.Exists {
			return candidate, true
		}
	}
	return "", false
}

// DocumentsDiscoverer resolves the per-user documents path used for
// ini/config storage: Windows reads the registry Shell Folders "Personal"
// value; Linux joins a Steam library's Proton compatdata path.
type DocumentsDiscoverer struct{}

// FromSteamCompatData builds the Linux/Proton documents path:
// <steamLibrary>/steamapps/compatdata/<SteamId>/pfx/drive_c/users/steamuser/My Documents/My Games/<DocsFolderName>
func (DocumentsDiscoverer) FromSteamCompatData(steamLibrary string, profile GameProfile) string {
	return filepath.Join(steamLibrary, "steamapps", "compatdata", profile.SteamID,
		"pfx", "drive_c", "users", "steamuser", "My Documents", "My Games", profile.DocsFolderName)
}

// FromWindowsPersonalFolder joins the registry-resolved "Personal" shell
// folder with the game's "My Games" subdirectory. personalFolder is read
// by the (Windows-only, out-of-core) registry collaborator and passed in.
func (DocumentsDiscoverer) FromWindowsPersonalFolder(personalFolder string, profile GameProfile) string {
	if personalFolder == "" {
		return ""
	}
	return filepath.Join(personalFolder, "My Games", profile.DocsFolderName)
}

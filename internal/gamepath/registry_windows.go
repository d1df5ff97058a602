//go:build windows

package gamepath

import "golang.org/x/sys/windows/registry"

// fromRegistry probes the Bethesda then GOG registry key templates under
// HKLM\SOFTWARE\WOW6432Node, per spec section 6.
func (d *Discoverer) fromRegistry(profile GameProfile) (string, bool) {
	if profile.RegistryGameID != "" {
		subkey := profile.RegistryGameID
		if profile.VR {
			subkey += "VR"
		}
		if path, ok := readRegistryInstallPath(
			`SOFTWARE\WOW6432Node\Bethesda Softworks\`+subkey, "installed path"); ok {
			return path, true
		}
	}
	if profile.GogID != "" {
		if path, ok := readRegistryInstallPath(
			`SOFTWARE\WOW6432Node\GOG.com\Games\`+profile.GogID, "path"); ok {
			return path, true
		}
	}
	return "", false
}

func readRegistryInstallPath(path, valueName string) (string, bool) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if err != nil {
		return "", false
	}
	defer key.Close()

	value, _, err := key.GetStringValue(valueName)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

//go:build !windows

package gamepath

// fromRegistry is a no-op outside Windows: Bethesda/GOG installs are
// registry-tracked only on Windows hosts. Linux/Proton installs are found
// via the Script-Extender log or Steam library sources instead.
func (d *Discoverer) fromRegistry(profile GameProfile) (string, bool) {
	return "", false
}

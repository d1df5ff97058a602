// Package builtin implements the fixed analyzer set named in spec
// section 9's "Variants include…" and expanded by SPEC_FULL section
// C.2: crash-header extraction, settings validation, plugin load-order
// validation, memory-manager conflict validation, and FCX integrity
// validation.
package builtin

// Shared-data keys published by CrashHeaderAnalyzer for downstream
// analyzers to consume via analyzer.Context.Get.
const (
	SharedKeyGameVersion     = "crash_header.game_version"
	SharedKeyCrashGenVersion = "crash_header.crashgen_version"
	SharedKeyCrashGenName    = "crash_header.crashgen_name"
	SharedKeyPluginList      = "plugin_load_order.plugins"
	SharedKeyGameRoot        = "fcx.game_root"
)

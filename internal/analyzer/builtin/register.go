package builtin

import (
	"github.com/evildarkarchon/scanner111/contrib"
	"github.com/evildarkarchon/scanner111/internal/analyzer"
)

func init() {
	contrib.RegisterAnalyzer("CrashHeaderAnalyzer", func() analyzer.Analyzer { return &CrashHeaderAnalyzer{} })
	contrib.RegisterAnalyzer("SettingsAnalyzer", func() analyzer.Analyzer { return &SettingsAnalyzer{} })
	contrib.RegisterAnalyzer("PluginLoadOrderAnalyzer", func() analyzer.Analyzer { return &PluginLoadOrderAnalyzer{} })
	contrib.RegisterAnalyzer("MemoryManagerAnalyzer", func() analyzer.Analyzer { return &MemoryManagerAnalyzer{} })
	contrib.RegisterAnalyzer("FCXAnalyzer", func() analyzer.Analyzer {
		return &FCXAnalyzer{LoaderExecutable: "f4se_loader.exe", XSEBase: "F4SE", AddressLibraryGlob: "version-*-*-*-*.bin"}
	})
}

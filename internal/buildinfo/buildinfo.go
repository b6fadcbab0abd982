// Package buildinfo exposes version metadata stamped at build time.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Linker-overridable build metadata.
var (
	Version    = "0.1.0"
	CommitHash = ""
)

// Info is normalized build metadata for display.
type Info struct {
	Version    string
	CommitHash string
}

// Current returns build metadata from linker overrides, falling back to the
// module's VCS build settings when available.
func Current() Info {
	info := Info{
		Version:    strings.TrimSpace(Version),
		CommitHash: strings.TrimSpace(CommitHash),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if (info.Version == "" || info.Version == "0.1.0") && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		if info.CommitHash == "" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.CommitHash = strings.TrimSpace(s.Value)
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = "unknown"
	}
	if info.CommitHash == "" {
		info.CommitHash = "unknown"
	}
	return info
}

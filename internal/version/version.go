// Package version holds build information for apiguard.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at release time:
//
//	go build -ldflags "-X apiguard/internal/version.Version=1.0.0 -X apiguard/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = ""
	BuildDate = ""
)

// BuildInfo is the machine-readable form of the version command.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion"`
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Get returns the build information. Commit and build date fall back to the VCS stamp the Go
// toolchain embeds when they were not set with -ldflags.
func Get() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if bi, ok := readBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return info
}

// Full is the human form of the version command.
func Full() string {
	info := Get()
	commit := info.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if info.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("apiguard version %s\nCommit: %s\nBuilt: %s\nGo: %s",
		info.Version, commit, info.BuildDate, info.GoVersion)
}

package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X github.com/frostdev-ops/home-panel-go/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is reported by the health endpoint and the CLI
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the release version, or dev-<short commit> for local builds
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	commit := GitCommit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return "dev-" + commit
}

// String renders the build info on one line
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, go: %s)", b.Version, b.GitCommit, b.BuildDate, b.GoVersion)
}

// Get returns the current build info
func Get() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

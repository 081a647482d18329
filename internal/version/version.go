// Package version holds the build metadata stamped in with
// -ldflags "-X github.com/MeKo-Tech/robomaze/internal/version.Version=...".
package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Build is the version triple printed by --version and reported by /health.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Current returns the stamped build metadata.
func Current() Build {
	return Build{Version: Version, Commit: GitCommit, Date: BuildDate}
}

// Lines renders b the way `robomaze --version` prints it.
func (b Build) Lines() []string {
	return []string{
		fmt.Sprintf("robomaze version %s", b.Version),
		fmt.Sprintf("Commit: %s", b.Commit),
		fmt.Sprintf("Date: %s", b.Date),
	}
}

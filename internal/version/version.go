// Package version exposes build metadata stamped at link time.
package version

import (
	"fmt"
	"runtime"
)

// Stamped by the release build via
// -ldflags "-X github.com/smazurov/streamgate/internal/version.Version=...".
// A source build reports "dev".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the stamped metadata plus the toolchain that produced the
// running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get collects the stamped values and the runtime platform.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the bare version. The updater compares this against
// release tags, so it must stay a plain semver string.
func String() string {
	return Version
}

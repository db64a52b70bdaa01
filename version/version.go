// Package version exposes build metadata injected at release time.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X .../version.Version=... -X .../version.CommitHash=...".
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

// Info is the version surface the version command prints.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get collects the build metadata and runtime facts.
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the one-line human-readable form.
func (i Info) String() string {
	return fmt.Sprintf("sigma-convert %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
}

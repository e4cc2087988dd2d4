// Package version exposes build metadata for calcprobe.
//
// Values are injected at link time:
//
//	go build -ldflags "-X github.com/jmylchreest/calcprobe/internal/version.Version=1.0.0 \
//	                   -X github.com/jmylchreest/calcprobe/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/jmylchreest/calcprobe/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// ApplicationName is the binary and User-Agent product name.
const ApplicationName = "calcprobe"

// Info is the structured form printed by `calcprobe version --json`
// and reported by the health endpoint.
type Info struct {
	Application string `json:"application"`
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Date        string `json:"date"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return Info{
		Application: ApplicationName,
		Version:     Version,
		Commit:      Commit,
		Date:        Date,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func shortCommit() string {
	if Commit == "unknown" || len(Commit) < 8 {
		return ""
	}
	return Commit[:8]
}

// String returns the long, human-readable version line.
func String() string {
	info := GetInfo()
	if sha := shortCommit(); sha != "" {
		return fmt.Sprintf("%s %s (commit %s, built %s, %s %s)",
			ApplicationName, info.Version, sha, info.Date, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("%s %s (%s %s)", ApplicationName, info.Version, info.GoVersion, info.Platform)
}

// Short returns the cobra --version string.
func Short() string {
	if sha := shortCommit(); sha != "" {
		return fmt.Sprintf("%s (%s)", Version, sha)
	}
	return Version
}

// UserAgent is sent on every probe request so target logs can tell
// smoke traffic apart from real visitors.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (+smoke-test)", ApplicationName, Version)
}

// IsSnapshot reports whether this is an untagged build.
func IsSnapshot() bool {
	return Version == "dev" || strings.Contains(Version, "-SNAPSHOT")
}

// JSON returns the indented JSON encoding of GetInfo.
func JSON() (string, error) {
	data, err := json.MarshalIndent(GetInfo(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}
	return string(data), nil
}

// Package version holds build information for spoke-collector.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/Sternrassler/spoke-connector/internal/version.Version=v0.3.0".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Short returns the version string.
func Short() string {
	return Version
}

// Info returns a one-line description, with the commit shortened to 7 chars.
func Info() string {
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("spoke-collector %s (commit: %s, built: %s, go: %s)",
		Version, commit, BuildDate, runtime.Version())
}

// UserAgent returns the User-Agent sent to the provider.
func UserAgent() string {
	return fmt.Sprintf("spoke-connector/%s (graph ingestion client)", Version)
}

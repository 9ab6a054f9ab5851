// Package version holds build metadata stamped in via -ldflags.
package version

import "fmt"

// Set at build time:
//
//	go build -ldflags "-X github.com/HerbHall/runnerwatch/internal/version.Version=1.2.0 ..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String returns a single-line human-readable version.
func String() string {
	return fmt.Sprintf("runnerwatch %s (commit %s, built %s)", Version, Commit, Date)
}

// Map returns the version fields for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}

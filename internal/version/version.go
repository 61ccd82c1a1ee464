// Package version holds build metadata injected with -ldflags -X.
package version

// Build metadata; overridden at link time.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

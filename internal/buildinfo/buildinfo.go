// Package buildinfo stores build-time metadata shared across packages.
package buildinfo

// Version, Commit and Date are set via ldflags during build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

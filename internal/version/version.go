// Package version exposes build-time identification, populated via
// -ldflags "-X" at release time.
package version

var (
	// Version is the current relay version.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Package version carries the build identity stamped in at link time.
package version

// Set via ldflags during release builds.
//
//nolint:gochecknoglobals // intentionally global for ldflags injection
var (
	version = "dev"
	buildID = "dev"
)

// Version returns the semantic version of this build.
func Version() string {
	return version
}

// BuildID returns the CI build identifier.
func BuildID() string {
	return buildID
}

// Full returns the version with its build ID.
func Full() string {
	return version + " (build: " + buildID + ")"
}

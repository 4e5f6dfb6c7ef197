// Package buildconfig exposes build metadata injected at link time via
// -ldflags "-X ...".
package buildconfig

var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the build version.
func Version() string {
	return version
}

// Commit returns the git commit the binary was built from.
func Commit() string {
	return commit
}

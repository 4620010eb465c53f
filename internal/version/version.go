// Package version exposes the build version injected at link time.
package version

var version = "dev"

// Value returns the CLI version.
func Value() string {
	return version
}

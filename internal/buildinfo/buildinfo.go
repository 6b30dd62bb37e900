// Package buildinfo contains build-time metadata injected at link time,
// separate from user configuration.
package buildinfo

import "fmt"

// Context holds the build metadata stamped into the binary.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// String formats the build metadata for --version output.
func (c *Context) String() string {
	version := c.Version
	if version == "" {
		version = "dev"
	}
	if c.BuildDate == "" {
		return version
	}
	return fmt.Sprintf("%s (built %s)", version, c.BuildDate)
}

// Package buildinfo carries build metadata injected at link time. It is kept
// apart from user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not set.
const UnknownValue = "unknown"

// Context holds build metadata.
type Context struct {
	// Version is the git tag of the build
	Version string

	// BuildDate is when the binary was built
	BuildDate string
}

// GetVersion returns the version or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the release name reported to error telemetry.
func (c *Context) Release() string {
	return fmt.Sprintf("setbreak@%s", c.GetVersion())
}

// Package version holds the CLI version string.
package version

// Version is the SDK and CLI release version. Overridden at build time via
// -ldflags for tagged releases.
var Version = "0.1.0-dev"

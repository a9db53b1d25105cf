// Package version holds the build version, set with
// -ldflags "-X github.com/mrcode/glucoshare/internal/version.Version=v1.2.3"
package version

// Version is the release version
var Version = "dev"

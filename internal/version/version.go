// Package version holds the build version, set with
// -ldflags "-X github.com/jhorman9/elevideo/internal/version.Version=v1.2.3".
package version

// Version of the elevideo build.
var Version = "dev"

// UserAgent is sent with every API request.
func UserAgent() string {
	return "elevideo/" + Version
}

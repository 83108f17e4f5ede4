// Package version provides information about the build version of the binaries.
package version

// BuildInfo holds version information about a build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set via -ldflags "-X 'releasepulse/internal/core/version.Version=v0.3.0'
// -X 'releasepulse/internal/core/version.Commit=abcd' -X 'releasepulse/internal/core/version.Date=2026-01-02'"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns the build information for the named service binary.
func Info(service string) BuildInfo {
	return BuildInfo{
		Service: service,
		Version: Version,
		Commit:  Commit,
		Date:    Date,
	}
}

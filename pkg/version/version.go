package version

import (
	"fmt"
	"runtime"
)

// Injected via ldflags at release time
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// GetVersion returns the complete version information as a string
func GetVersion() string {
	return fmt.Sprintf("autoinc-agent %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, runtime.Version())
}

func GetVersionOnly() string {
	return Version
}

// UserAgent is sent with every outgoing HTTP request.
func UserAgent() string {
	return fmt.Sprintf("autoinc-agent/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

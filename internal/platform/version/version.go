package version

import (
	"fmt"
	"runtime"
)

// Build information, injected via ldflags at build time
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// UserAgent identifies this service on outbound HTTP calls.
func UserAgent() string {
	return fmt.Sprintf("king-social/%s (%s)", Version, Commit)
}

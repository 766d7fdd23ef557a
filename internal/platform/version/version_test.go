package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" || info.Commit == "" || info.BuildTime == "" {
		t.Errorf("build fields should have defaults, got %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.HasPrefix(ua, "king-social/"+Version) {
		t.Errorf("UserAgent = %q", ua)
	}
}

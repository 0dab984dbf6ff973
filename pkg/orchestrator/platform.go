package orchestrator

import (
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
)

// Platform identifies a (CPU architecture, operating system) pair a build
// can target.
type Platform struct {
	Arch string
	OS   string
}

func (p Platform) String() string {
	return p.Arch + "-" + p.OS
}

// SupportedPlatforms lists every platform the orchestrator knows how to
// build for.
var SupportedPlatforms = []Platform{
	{Arch: "x86_64", OS: "linux"},
	{Arch: "aarch64", OS: "linux"},
	{Arch: "x86_64", OS: "darwin"},
	{Arch: "aarch64", OS: "darwin"},
}

// ParsePlatform converts an identifier like "x86_64-linux" into a Platform.
func ParsePlatform(id string) (Platform, error) {
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 {
		return Platform{}, eris.Errorf("malformed platform identifier %s, expected <arch>-<os>", id)
	}

	candidate := Platform{Arch: parts[0], OS: parts[1]}
	for _, platform := range SupportedPlatforms {
		if platform == candidate {
			return candidate, nil
		}
	}

	return Platform{}, eris.Errorf("platform %s is not supported", id)
}

// HostPlatform returns the platform the orchestrator itself is running on.
func HostPlatform() Platform {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}

	return Platform{Arch: arch, OS: runtime.GOOS}
}

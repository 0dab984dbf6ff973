package orchestrator

import "testing"

func TestParsePlatform(t *testing.T) {
	for _, id := range []string{"x86_64-linux", "aarch64-linux", "x86_64-darwin", "aarch64-darwin"} {
		platform, err := ParsePlatform(id)
		if err != nil {
			t.Errorf("%s should be supported: %v", id, err)
			continue
		}

		if platform.String() != id {
			t.Errorf("round trip changed %s to %s", id, platform)
		}
	}
}

func TestParsePlatformRejectsUnknown(t *testing.T) {
	for _, id := range []string{"x86_64-windows", "riscv64-linux", "linux", ""} {
		_, err := ParsePlatform(id)
		if err == nil {
			t.Errorf("%q should have been rejected", id)
		}
	}
}

func TestHostPlatformIsWellFormed(t *testing.T) {
	host := HostPlatform()
	if host.Arch == "" || host.OS == "" {
		t.Fatalf("host platform %+v is incomplete", host)
	}

	// Go arch names never leak through
	if host.Arch == "amd64" || host.Arch == "arm64" {
		t.Errorf("host arch %s was not normalized", host.Arch)
	}
}

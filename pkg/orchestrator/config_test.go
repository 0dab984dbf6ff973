package orchestrator

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigStaysBelowTempRoot(t *testing.T) {
	tempRoot := t.TempDir()
	config := DefaultConfig(tempRoot)

	if err := config.Validate(); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{config.CacheDir, config.DataDir, config.HomeDir} {
		if !strings.HasPrefix(dir, tempRoot+string(filepath.Separator)) {
			t.Errorf("directory %s escapes the temp root %s", dir, tempRoot)
		}
	}
}

func TestValidateRejectsEscapingDirs(t *testing.T) {
	config := DefaultConfig(t.TempDir())
	config.CacheDir = "/var/cache/shared"

	if err := config.Validate(); err == nil {
		t.Fatal("a cache directory outside the temp root must be rejected")
	}
}

func TestValidateRejectsUnknownLinkMode(t *testing.T) {
	config := DefaultConfig(t.TempDir())
	config.LinkMode = "reflink"

	if err := config.Validate(); err == nil {
		t.Fatal("an unknown link mode must be rejected")
	}
}

func TestEnvironRendersOverrides(t *testing.T) {
	tempRoot := t.TempDir()
	config := DefaultConfig(tempRoot)
	config.CompileBytecode = true
	config.NoSync = true
	config.LinkMode = LinkCopy

	env := map[string]string{}
	for _, entry := range config.Environ() {
		key, value, _ := strings.Cut(entry, "=")
		env[key] = value
	}

	expectations := map[string]string{
		"HOME":                config.HomeDir,
		"XDG_CACHE_HOME":      config.CacheDir,
		"XDG_DATA_HOME":       config.DataDir,
		"UV_LINK_MODE":        "copy",
		"UV_COMPILE_BYTECODE": "1",
		"UV_NO_SYNC":          "1",
	}

	for key, want := range expectations {
		if env[key] != want {
			t.Errorf("%s = %q, want %q", key, env[key], want)
		}
	}
}

func TestEnvironOverridesWinOverProcessEnv(t *testing.T) {
	t.Setenv("HOME", "/home/somebody")

	config := DefaultConfig(t.TempDir())
	count := 0
	for _, entry := range config.Environ() {
		if strings.HasPrefix(entry, "HOME=") {
			count++
			if entry != "HOME="+config.HomeDir {
				t.Errorf("unexpected home binding %s", entry)
			}
		}
	}

	if count != 1 {
		t.Errorf("expected exactly one HOME binding, got %d", count)
	}
}

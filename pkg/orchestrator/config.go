package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// LinkMode selects how the package installer materializes files in the
// target directory.
type LinkMode string

const (
	LinkCopy     LinkMode = "copy"
	LinkHardlink LinkMode = "hardlink"
	LinkSymlink  LinkMode = "symlink"
)

// BuildConfig holds every ambient setting a build consumes. It is passed
// explicitly into the orchestrator instead of mutating the process
// environment so that parallel builds stay independent.
type BuildConfig struct {
	// TempRoot confines all scratch state of one build invocation. The
	// cache, data and home directories live below it.
	TempRoot string
	CacheDir string
	DataDir  string
	HomeDir  string

	// CompileBytecode toggles precompilation during installation.
	CompileBytecode bool
	// NoSync stops the installer from touching any project-level
	// environment; we only ever install into explicit target directories.
	NoSync   bool
	LinkMode LinkMode

	Platform Platform
}

// DefaultConfig builds a config with all scratch directories placed below
// tempRoot, targeting the host platform.
func DefaultConfig(tempRoot string) BuildConfig {
	return BuildConfig{
		TempRoot:        tempRoot,
		CacheDir:        filepath.Join(tempRoot, "cache"),
		DataDir:         filepath.Join(tempRoot, "data"),
		HomeDir:         filepath.Join(tempRoot, "home"),
		CompileBytecode: true,
		NoSync:          true,
		LinkMode:        LinkCopy,
		Platform:        HostPlatform(),
	}
}

func (c BuildConfig) Validate() error {
	if c.TempRoot == "" {
		return eris.New("TempRoot must not be empty")
	}

	for _, dir := range []string{c.CacheDir, c.DataDir, c.HomeDir} {
		if dir == "" {
			return eris.New("cache, data and home directories must all be set")
		}

		if !strings.HasPrefix(dir, c.TempRoot+string(filepath.Separator)) {
			return eris.Errorf("directory %s escapes the temp root %s", dir, c.TempRoot)
		}
	}

	switch c.LinkMode {
	case LinkCopy, LinkHardlink, LinkSymlink:
	default:
		return eris.Errorf("unknown link mode %q", c.LinkMode)
	}

	return nil
}

// EnsureDirs creates the scratch directories.
func (c BuildConfig) EnsureDirs() error {
	for _, dir := range []string{c.TempRoot, c.CacheDir, c.DataDir, c.HomeDir} {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			return eris.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	return nil
}

// Environ renders the config to environment variable bindings for the
// installer and test processes. The process environment is inherited for
// PATH and friends; everything state-bearing is redirected below TempRoot.
func (c BuildConfig) Environ() []string {
	overrides := map[string]string{
		"HOME":                c.HomeDir,
		"XDG_CACHE_HOME":      c.CacheDir,
		"XDG_DATA_HOME":       c.DataDir,
		"UV_CACHE_DIR":        filepath.Join(c.CacheDir, "uv"),
		"UV_LINK_MODE":        string(c.LinkMode),
		"UV_COMPILE_BYTECODE": boolFlag(c.CompileBytecode),
		"UV_NO_SYNC":          boolFlag(c.NoSync),
	}

	osEnv := os.Environ()
	env := make([]string, 0, len(osEnv)+len(overrides))
	for _, item := range osEnv {
		parts := strings.SplitN(item, "=", 2)
		if _, present := overrides[parts[0]]; !present {
			env = append(env, item)
		}
	}

	for _, key := range []string{
		"HOME", "XDG_CACHE_HOME", "XDG_DATA_HOME",
		"UV_CACHE_DIR", "UV_LINK_MODE", "UV_COMPILE_BYTECODE", "UV_NO_SYNC",
	} {
		env = append(env, fmt.Sprintf("%s=%s", key, overrides[key]))
	}

	return env
}

func boolFlag(value bool) string {
	if value {
		return "1"
	}
	return "0"
}

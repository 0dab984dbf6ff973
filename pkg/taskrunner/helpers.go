package taskrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// normalizePath resolves path segments relative to the script's directory.
// A "//" prefix anchors the path at the project root.
func normalizePath(ctx *scriptCtx, pathList ...string) string {
	result := filepath.Dir(ctx.filepath)

	for _, path := range pathList {
		switch {
		case strings.HasPrefix(path, "//"):
			result = filepath.Join(ctx.projectRoot, path[2:])
		case !filepath.IsAbs(path):
			result = filepath.Join(result, path)
		default:
			result = path
		}
	}

	return filepath.Clean(result)
}

// simplifyPath renders path relative to the project root for display.
func simplifyPath(ctx *scriptCtx, path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	if strings.HasPrefix(absPath, ctx.projectRoot) {
		return "//" + absPath[len(ctx.projectRoot)+1:]
	}
	return path
}

// getEnvVars merges the process environment with the script's overrides.
func getEnvVars(overrides map[string]string) []string {
	osEnv := os.Environ()
	env := make([]string, 0, len(osEnv)+len(overrides))
	for _, item := range osEnv {
		parts := strings.SplitN(item, "=", 2)

		// skip overridden entries to avoid conflicts
		if _, present := overrides[parts[0]]; !present {
			env = append(env, item)
		}
	}

	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return env
}

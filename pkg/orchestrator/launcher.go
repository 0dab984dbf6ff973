package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/syntax"
)

// LauncherKind selects which of the two generated entry points to render.
type LauncherKind string

const (
	// LauncherScript invokes the project's top-level entry script.
	LauncherScript LauncherKind = "script"
	// LauncherModule invokes the project as an importable module.
	LauncherModule LauncherKind = "module"
)

// LauncherSpec carries everything needed to render one launcher.
type LauncherSpec struct {
	Kind LauncherKind
	// DepsPath is prepended to the module search path before delegation.
	// A relative path is resolved against the artifact root (the parent
	// of the launcher's bin directory), keeping the artifact relocatable.
	DepsPath string
	// Interpreter is the runtime executable, e.g. python3.
	Interpreter string
	// Entry is the entry script path for LauncherScript and the module
	// name for LauncherModule. A relative script path is resolved against
	// the artifact root as well.
	Entry string
}

// RenderLauncher produces the launcher script text. The script exports the
// module search path and execs the interpreter, forwarding all arguments
// verbatim so the exit code passes through unchanged.
func RenderLauncher(spec LauncherSpec) (string, error) {
	if spec.DepsPath == "" || spec.Interpreter == "" || spec.Entry == "" {
		return "", eris.New("deps path, interpreter and entry must all be set")
	}

	needsRoot := !filepath.IsAbs(spec.DepsPath)

	depsWord, err := launcherWord(spec.DepsPath, !filepath.IsAbs(spec.DepsPath))
	if err != nil {
		return "", err
	}

	var invocation []string
	switch spec.Kind {
	case LauncherScript:
		entryWord, err := launcherWord(spec.Entry, !filepath.IsAbs(spec.Entry))
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(spec.Entry) {
			needsRoot = true
		}

		interpWord, err := launcherWord(spec.Interpreter, false)
		if err != nil {
			return "", err
		}

		invocation = []string{interpWord, entryWord}
	case LauncherModule:
		interpWord, err := launcherWord(spec.Interpreter, false)
		if err != nil {
			return "", err
		}

		moduleWord, err := launcherWord(spec.Entry, false)
		if err != nil {
			return "", err
		}

		invocation = []string{interpWord, "-m", moduleWord}
	default:
		return "", eris.Errorf("unknown launcher kind %q", spec.Kind)
	}

	builder := strings.Builder{}
	builder.WriteString("#!/bin/sh\n")
	builder.WriteString("# generated launcher; do not edit\n")
	if needsRoot {
		builder.WriteString(`root="$(CDPATH= cd -- "$(dirname -- "$0")/.." && pwd)"` + "\n")
	}
	builder.WriteString("PYTHONPATH=" + depsWord + "${PYTHONPATH:+:$PYTHONPATH}\n")
	builder.WriteString("export PYTHONPATH\n")
	builder.WriteString("exec " + strings.Join(invocation, " ") + ` "$@"` + "\n")

	return builder.String(), nil
}

// launcherWord quotes value for safe interpolation into the script. With
// anchor set, the value is prefixed with the artifact root variable.
func launcherWord(value string, anchor bool) (string, error) {
	quoted, err := syntax.Quote(value, syntax.LangPOSIX)
	if err != nil {
		return "", eris.Wrapf(err, "failed to quote %q", value)
	}

	if anchor {
		return `"$root"/` + quoted, nil
	}
	return quoted, nil
}

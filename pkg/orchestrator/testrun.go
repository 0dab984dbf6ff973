package orchestrator

import (
	"context"
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
)

// TestRunner executes the project's test suite against an installed
// dependency set. dir is the source tree, env the fully assembled
// environment (module search path included).
type TestRunner interface {
	Run(ctx context.Context, dir string, env []string) error
}

// CommandTestRunner runs a fixed argv, typically ["pytest"].
type CommandTestRunner struct {
	Argv []string
}

func (r CommandTestRunner) Run(ctx context.Context, dir string, env []string) error {
	if len(r.Argv) == 0 {
		return eris.New("no test command configured")
	}

	cmd := exec.CommandContext(ctx, r.Argv[0], r.Argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		return eris.Wrapf(err, "test command %s reported failure", r.Argv[0])
	}

	return nil
}

package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg/orchestrator"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Runs the test suite against an installed dependency set",
	Long: `Executes the manifest's test command with the module search path
pointing at the given dependency directory. Exits non-zero when the suite
fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := loadProject()
		if err != nil {
			return err
		}

		depsDir, err := cmd.Flags().GetString("deps")
		if err != nil {
			return err
		}
		if !filepath.IsAbs(depsDir) {
			depsDir = filepath.Join(project.Root, depsDir)
		}

		argv := []string{"pytest"}
		if project.Test != nil {
			argv = project.Test.Command
		}

		runner := orchestrator.CommandTestRunner{Argv: argv}
		env := append(os.Environ(), "PYTHONPATH="+depsDir)

		return runner.Run(newContext(), project.AbsSourceDir(), env)
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().StringP("deps", "d", ".deps", "directory holding the installed dependency set")
}

package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg"
	"github.com/execution-handler/build-tools/pkg/orchestrator"
)

var installDepsCmd = &cobra.Command{
	Use:   "install-deps",
	Short: "Installs the locked dependencies into a target directory",
	Long: `Exports the lockfile and installs every pinned package into the
given target directory. The system site-packages are never touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := loadProject()
		if err != nil {
			return err
		}

		target, err := cmd.Flags().GetString("target")
		if err != nil {
			return err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(project.Root, target)
		}

		tempRoot, err := os.MkdirTemp("", "install-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tempRoot)

		config := orchestrator.DefaultConfig(tempRoot)
		err = config.EnsureDirs()
		if err != nil {
			return err
		}

		ctx := newContext()
		manager := orchestrator.UVManager{Config: config}

		pkg.PrintTask("Resolving dependencies")
		reqs, err := manager.ExportRequirements(ctx, project.AbsLockfile())
		if err != nil {
			return err
		}

		pkg.PrintTask("Installing dependencies")
		err = manager.Install(ctx, reqs, target)
		if err != nil {
			return err
		}

		pkg.PrintSubtask("Installed " + target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installDepsCmd)
	installDepsCmd.Flags().StringP("target", "t", ".deps", "directory receiving the installed packages")
}

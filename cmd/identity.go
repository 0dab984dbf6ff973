package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg/orchestrator"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Prints the content-addressed identifier of the lockfile",
	Long: `Derives the build identifier from the lockfile content. Identical
lockfiles always map to the identical identifier, so the identifier is
safe to use as a cache key for build outputs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := loadProject()
		if err != nil {
			return err
		}

		identity, err := orchestrator.ComputeIdentityFile(project.AbsLockfile())
		if err != nil {
			return err
		}

		fmt.Println(identity)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(identityCmd)
}

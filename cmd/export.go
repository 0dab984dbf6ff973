package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg/orchestrator"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports the lockfile as a flat requirements list",
	Long: `Translates the lockfile into a newline-delimited name==version
requirements list without integrity hashes, the format the installer step
consumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := loadProject()
		if err != nil {
			return err
		}

		output, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}

		tempRoot, err := os.MkdirTemp("", "export-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tempRoot)

		config := orchestrator.DefaultConfig(tempRoot)
		err = config.EnsureDirs()
		if err != nil {
			return err
		}

		manager := orchestrator.UVManager{Config: config}
		reqs, err := manager.ExportRequirements(newContext(), project.AbsLockfile())
		if err != nil {
			return err
		}

		rendered := orchestrator.FormatRequirements(reqs)
		if output == "" {
			_, err = os.Stdout.Write(rendered)
			return err
		}

		return os.WriteFile(output, rendered, 0644)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "write the requirements list to this file instead of stdout")
}

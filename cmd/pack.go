package cmd

import (
	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg"
	"github.com/execution-handler/build-tools/pkg/packer"
)

var packCmd = &cobra.Command{
	Use:   "pack <artifact-dir>",
	Short: "Compresses a finished artifact for distribution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}

		format, err := packer.ParseFormat(formatName)
		if err != nil {
			return err
		}

		pkg.PrintTask("Packing " + args[0])
		archivePath, err := packer.Pack(args[0], format, true)
		if err != nil {
			return err
		}

		pkg.PrintSubtask("Wrote " + archivePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringP("format", "F", string(packer.FormatXz), "archive format (tar.xz or tar.br)")
}

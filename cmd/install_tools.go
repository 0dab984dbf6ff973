package cmd

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg"
	"github.com/execution-handler/build-tools/pkg/tools"
)

var installToolsCmd = &cobra.Command{
	Use:   "install-tools",
	Short: "Installs the pinned dev shell tools",
	Long: `Installs the CLI tools pinned in tools.yml (the nickel
configuration evaluator and the mask task runner) into the workspace
.tools directory. If you have direnv enabled, they will be available in
your PATH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := pkg.GetProjectRoot()
		if err != nil {
			return err
		}

		verifyOnly, err := cmd.Flags().GetBool("verify")
		if err != nil {
			return err
		}

		if verifyOnly {
			missing, err := tools.Verify(root)
			if err != nil {
				return err
			}

			if len(missing) > 0 {
				pkg.PrintError("Missing tools: " + strings.Join(missing, ", "))
				return eris.Errorf("%d tools are not installed", len(missing))
			}

			pkg.PrintTask("All tools installed")
			return nil
		}

		pkg.PrintTask("Installing tools")
		err = tools.Install(root)
		if err != nil {
			return err
		}

		pkg.PrintTask("Done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installToolsCmd)
	installToolsCmd.Flags().Bool("verify", false, "only check that every pinned tool is installed")
}

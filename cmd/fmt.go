package cmd

import (
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

// ErrFormatCheck signals non-conforming files during a formatting check.
// It never affects a build artifact, only the check's exit code.
var ErrFormatCheck = eris.New("formatting check failed")

var fmtCmd = &cobra.Command{
	Use:   "fmt",
	Short: "Formats the source tree",
	Long: `Runs the formatter configured in build.hcl over the source tree.
With --check the formatter only reports non-conforming files and the
command exits non-zero without modifying anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := loadProject()
		if err != nil {
			return err
		}

		if project.Fmt == nil {
			return eris.New("no fmt block configured in build.hcl")
		}

		check, err := cmd.Flags().GetBool("check")
		if err != nil {
			return err
		}

		argv := append([]string{}, project.Fmt.Command...)
		if check {
			argv = append(argv, project.Fmt.CheckArgs...)
		}

		formatter := exec.CommandContext(cmd.Context(), argv[0], argv[1:]...)
		formatter.Dir = project.AbsSourceDir()
		formatter.Stdout = os.Stdout
		formatter.Stderr = os.Stderr

		err = formatter.Run()
		if err != nil {
			if check {
				return eris.Wrap(ErrFormatCheck, err.Error())
			}
			return eris.Wrapf(err, "formatter %s failed", argv[0])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(fmtCmd)
	fmtCmd.Flags().Bool("check", false, "report non-conforming files without rewriting them")
}

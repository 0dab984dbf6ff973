package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg/taskrunner"
)

var taskCmd = &cobra.Command{
	Use:   "task [tasks and name=value options...]",
	Short: "Runs tasks from the project's tasks.star file",
	Long: `Parses the first tasks.star file found in the current directory
or any parent and executes the given tasks. Without arguments, the
available tasks are listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		taskArgs := make([]string, 0)
		options := make(map[string]string)

		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		for _, part := range args {
			pos := strings.Index(part, "=")
			if pos > -1 {
				options[part[:pos]] = part[pos+1:]
			} else {
				taskArgs = append(taskArgs, part)
			}
		}

		ctx := newContext()

		// search the next tasks.star file
		wd, err := os.Getwd()
		if err != nil {
			return eris.Wrap(err, "failed to retrieve the current working directory")
		}

		path := wd
		var taskPath string
		for {
			taskPath = filepath.Join(path, "tasks.star")
			_, err := os.Stat(taskPath)
			if err == nil {
				break
			}
			if !eris.Is(err, os.ErrNotExist) {
				return eris.Wrapf(err, "failed to check %s", taskPath)
			}

			parent := filepath.Dir(path)
			if parent == path {
				return eris.New("no tasks.star file found")
			}

			path = parent
		}

		projectRoot := filepath.Dir(taskPath)
		taskList, _, err := taskrunner.LoadScript(ctx, taskPath, projectRoot, options, true)
		if err != nil {
			return eris.Wrap(err, "failed to parse tasks")
		}

		for _, name := range taskArgs {
			err = taskrunner.RunTask(ctx, projectRoot, name, taskList, dryRun, force)
			if err != nil {
				return eris.Wrapf(err, "failed task %s", name)
			}
		}

		if len(taskArgs) == 0 {
			fmt.Println("Available tasks:")
			maxNameLen := 0
			sortedNames := make([]string, 0)
			for _, task := range taskList {
				if len(task.Name) > maxNameLen {
					maxNameLen = len(task.Name)
				}

				sortedNames = append(sortedNames, task.Name)
			}

			sort.Strings(sortedNames)

			lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
			for _, name := range sortedNames {
				fmt.Printf(lineFmt, name+":", taskList[name].Desc)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	taskCmd.Flags().BoolP("force", "f", false, "always execute the passed tasks even if they don't have to run")
}

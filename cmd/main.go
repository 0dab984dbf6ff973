package cmd

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg"
	"github.com/execution-handler/build-tools/pkg/manifest"
	"github.com/execution-handler/build-tools/pkg/orchestrator"
	"github.com/execution-handler/build-tools/pkg/taskrunner"
)

var rootCmd = &cobra.Command{
	Use:   "tool",
	Short: "Build tools for execution-handler",
	Long: `This command bundles the tools used to build, test and package
execution-handler. This includes the build orchestrator, a task runner,
the formatter front end and a dev tool installer.`,
	SilenceUsage: true,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// newContext builds the logging context every subcommand runs under.
func newContext() context.Context {
	logger := zerolog.New(NewConsoleWriter())
	ctx := context.Background()
	ctx = orchestrator.WithLogger(ctx, &logger)
	ctx = taskrunner.WithLogger(ctx, &logger)

	return ctx
}

// loadProject locates the project root and decodes build.hcl.
func loadProject() (*manifest.Project, error) {
	root, err := pkg.GetProjectRoot()
	if err != nil {
		return nil, err
	}

	return manifest.Load(filepath.Join(root, "build.hcl"))
}

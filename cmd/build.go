package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/execution-handler/build-tools/pkg"
	"github.com/execution-handler/build-tools/pkg/orchestrator"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds, tests and packages the project",
	Long: `Exports the lockfile, installs the pinned dependencies into an
isolated target directory, runs the test suite against that installation
and, if the tests pass, assembles the final artifact with its launcher
scripts. A failing test suite aborts the build and leaves no output tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := loadProject()
		if err != nil {
			return err
		}

		skipTests, err := cmd.Flags().GetBool("skip-tests")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		outDir, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		if !filepath.IsAbs(outDir) {
			outDir = filepath.Join(project.Root, outDir)
		}

		platformID, err := cmd.Flags().GetString("platform")
		if err != nil {
			return err
		}

		platform := orchestrator.HostPlatform()
		if platformID != "" {
			platform, err = orchestrator.ParsePlatform(platformID)
			if err != nil {
				return err
			}
		}

		tempRoot, err := os.MkdirTemp("", "build-"+project.Name+"-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tempRoot)

		config := orchestrator.DefaultConfig(tempRoot)
		config.Platform = platform

		var tests orchestrator.TestRunner = orchestrator.CommandTestRunner{Argv: []string{"pytest"}}
		if project.Test != nil {
			tests = orchestrator.CommandTestRunner{Argv: project.Test.Command}
		}

		orch := orchestrator.Orchestrator{
			Manager: &orchestrator.UVManager{Config: config},
			Tests:   tests,
			Config:  config,
		}

		pkg.PrintTask("Building " + project.Name)
		artifact, err := orch.Build(newContext(), orchestrator.Options{
			SourceDir:    project.AbsSourceDir(),
			Lockfile:     project.AbsLockfile(),
			OutputDir:    outDir,
			Name:         project.Name,
			Interpreter:  project.Interpreter,
			EntryScript:  project.Entrypoint,
			ModuleName:   project.Module,
			SkipTests:    skipTests,
			Force:        force,
			ShowProgress: true,
		})
		if err != nil {
			return err
		}

		if artifact.Cached {
			pkg.PrintSubtask("Reused existing artifact " + artifact.Path)
		} else {
			pkg.PrintSubtask("Artifact written to " + artifact.Path)
		}
		pkg.PrintTask("Done")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().Bool("skip-tests", false, "disable the test gate and assemble an untested artifact")
	buildCmd.Flags().BoolP("force", "f", false, "rebuild even if an artifact for this lockfile already exists")
	buildCmd.Flags().StringP("out", "o", "dist", "output directory for the artifact")
	buildCmd.Flags().StringP("platform", "p", "", "target platform identifier (defaults to the host)")
}

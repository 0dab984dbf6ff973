package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
)

// Phase is the current position of a build in its lifecycle.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseResolving
	PhaseInstalling
	PhaseTesting
	PhaseAssembling
	PhaseDone
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseResolving:
		return "resolving"
	case PhaseInstalling:
		return "installing"
	case PhaseTesting:
		return "testing"
	case PhaseAssembling:
		return "assembling"
	case PhaseDone:
		return "done"
	case PhaseAborted:
		return "aborted"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Options selects what a single build invocation works on.
type Options struct {
	// SourceDir is the project tree that gets copied into the artifact.
	SourceDir string
	// Lockfile pins the dependency set.
	Lockfile string
	// OutputDir receives the finished artifact directory.
	OutputDir string
	// Name is the artifact base name; the lockfile identity is appended.
	Name string
	// Interpreter, EntryScript and ModuleName parameterize the launchers.
	Interpreter string
	EntryScript string
	ModuleName  string
	// SkipTests disables the test gate.
	SkipTests bool
	// Force rebuilds even when an artifact for this identity exists.
	Force bool
	// ShowProgress enables progress bars on long copies.
	ShowProgress bool
}

// Artifact describes a finished build output.
type Artifact struct {
	// Path is the final artifact directory.
	Path string
	// Identity is the content-addressed identifier of the lockfile.
	Identity string
	// Requirements is the installed dependency set. Empty when Cached is
	// set: reusing an artifact never resolves the lockfile again.
	Requirements []Requirement
	// Cached is true when an existing artifact for the same identity was
	// reused without rebuilding.
	Cached bool
}

// Orchestrator drives one build through resolve, install, test and
// assemble. It holds no mutable state between builds, so distinct
// orchestrators (or distinct Options) can run in parallel as long as their
// temp roots and output identities differ.
type Orchestrator struct {
	Manager DependencyManager
	Tests   TestRunner
	Config  BuildConfig
}

// Build runs the full pipeline. On test failure no output tree is
// produced; the staging directory is removed on every exit path.
func (o *Orchestrator) Build(ctx context.Context, opts Options) (*Artifact, error) {
	err := o.Config.Validate()
	if err != nil {
		return nil, err
	}

	err = o.Config.EnsureDirs()
	if err != nil {
		return nil, err
	}

	// the dependency set is installed into <staging>/deps before the source
	// tree is copied on top, so a source directory of the same name would
	// silently clobber it
	_, statErr := os.Stat(filepath.Join(opts.SourceDir, depsDirName))
	if statErr == nil {
		return nil, eris.Errorf("source tree contains a top-level %s directory which would overwrite the installed dependency set", depsDirName)
	}

	identity, err := ComputeIdentityFile(opts.Lockfile)
	if err != nil {
		return nil, err
	}

	logger := log(ctx).With().Str("identity", identity).Logger()
	ctx = WithLogger(ctx, &logger)

	finalPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s-%s", opts.Name, identity))
	if !opts.Force {
		_, err := os.Stat(finalPath)
		if err == nil {
			logger.Info().Str("path", finalPath).Msg("artifact already exists, skipping build")
			return &Artifact{Path: finalPath, Identity: identity, Cached: true}, nil
		}

		if !eris.Is(err, os.ErrNotExist) {
			return nil, eris.Wrapf(err, "failed to check %s", finalPath)
		}
	}

	err = os.MkdirAll(opts.OutputDir, 0755)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create output directory %s", opts.OutputDir)
	}

	// The artifact is built in a staging directory next to its final
	// location and moved into place in one step once everything passed.
	staging := filepath.Join(opts.OutputDir, ".staging-"+identity+"-"+nanoid.New())
	defer os.RemoveAll(staging)

	o.logPhase(ctx, PhaseResolving)
	reqs, err := o.Manager.ExportRequirements(ctx, opts.Lockfile)
	if err != nil {
		o.logPhase(ctx, PhaseAborted)
		return nil, eris.Wrap(ErrDependencyResolution, err.Error())
	}

	o.logPhase(ctx, PhaseInstalling)
	depsDir := filepath.Join(staging, depsDirName)
	err = o.Manager.Install(ctx, reqs, depsDir)
	if err != nil {
		o.logPhase(ctx, PhaseAborted)
		return nil, eris.Wrap(ErrDependencyResolution, err.Error())
	}

	if !opts.SkipTests {
		o.logPhase(ctx, PhaseTesting)
		env := append(o.Config.Environ(), "PYTHONPATH="+depsDir)
		err = o.Tests.Run(ctx, opts.SourceDir, env)
		if err != nil {
			o.logPhase(ctx, PhaseAborted)
			return nil, eris.Wrap(ErrTestFailure, err.Error())
		}
	} else {
		logger.Warn().Msg("test gate disabled, assembling untested artifact")
	}

	o.logPhase(ctx, PhaseAssembling)
	err = o.assemble(ctx, opts, staging)
	if err != nil {
		o.logPhase(ctx, PhaseAborted)
		return nil, err
	}

	if opts.Force {
		err = os.RemoveAll(finalPath)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to remove previous artifact %s", finalPath)
		}
	}

	err = os.Rename(staging, finalPath)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to move artifact into place at %s", finalPath)
	}

	o.logPhase(ctx, PhaseDone)
	return &Artifact{Path: finalPath, Identity: identity, Requirements: reqs}, nil
}

func (o *Orchestrator) assemble(ctx context.Context, opts Options, staging string) error {
	// Never copy the output directory into the artifact, it may live
	// inside the source tree.
	outAbs, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return eris.Wrapf(err, "failed to resolve %s", opts.OutputDir)
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		total, err := treeSize(opts.SourceDir, outAbs)
		if err != nil {
			return eris.Wrapf(err, "failed to measure %s", opts.SourceDir)
		}

		bar = progressbar.DefaultBytes(total, "     copying")
		defer bar.Finish()
	}

	_, err = copyTree(opts.SourceDir, staging, bar, outAbs)
	if err != nil {
		return err
	}

	return writeLaunchers(staging, opts.Name, opts.Interpreter, opts.EntryScript, opts.ModuleName)
}

func (o *Orchestrator) logPhase(ctx context.Context, phase Phase) {
	log(ctx).Info().Str("phase", phase.String()).Msg("entering build phase")
}

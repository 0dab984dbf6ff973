// Package manifest loads the project's build.hcl file.
package manifest

import (
	"path/filepath"
	"runtime"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rotisserie/eris"
	"github.com/zclconf/go-cty/cty"
)

// Project is the decoded build.hcl. Paths are relative to the manifest's
// directory unless absolute.
type Project struct {
	// Name is the project and artifact base name.
	Name string `hcl:"name"`
	// Module is the importable module name the second launcher runs.
	Module string `hcl:"module"`
	// Entrypoint is the top-level entry script the first launcher runs.
	Entrypoint string `hcl:"entrypoint"`

	SourceDir   string   `hcl:"source_dir,optional"`
	Lockfile    string   `hcl:"lockfile,optional"`
	Interpreter string   `hcl:"interpreter,optional"`
	Platforms   []string `hcl:"platforms,optional"`

	Test *TestBlock `hcl:"test,block"`
	Fmt  *FmtBlock  `hcl:"fmt,block"`

	// Root is the directory the manifest was loaded from.
	Root string
}

// TestBlock configures the test gate.
type TestBlock struct {
	Command []string `hcl:"command"`
}

// FmtBlock configures the source formatter integration.
type FmtBlock struct {
	Command []string `hcl:"command"`
	// CheckArgs are appended for check mode (report, don't rewrite).
	CheckArgs []string `hcl:"check_args,optional"`
}

// evalContext exposes the host platform to manifest expressions, so a
// manifest can say interpreter = os == "darwin" ? ... : ...
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"os":   cty.StringVal(runtime.GOOS),
			"arch": cty.StringVal(runtime.GOARCH),
		},
	}
}

// Load parses and decodes the manifest at path and applies defaults.
func Load(path string) (*Project, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, eris.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	var project Project
	diags = gohcl.DecodeBody(file.Body, evalContext(), &project)
	if diags.HasErrors() {
		return nil, eris.Errorf("failed to decode %s: %s", path, diags.Error())
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve %s", path)
	}
	project.Root = filepath.Dir(abs)

	project.applyDefaults()
	err = project.validate()
	if err != nil {
		return nil, eris.Wrapf(err, "invalid manifest %s", path)
	}

	return &project, nil
}

func (p *Project) applyDefaults() {
	if p.SourceDir == "" {
		p.SourceDir = "."
	}
	if p.Lockfile == "" {
		p.Lockfile = "uv.lock"
	}
	if p.Interpreter == "" {
		p.Interpreter = "python3"
	}
	if len(p.Platforms) == 0 {
		p.Platforms = []string{
			"x86_64-linux", "aarch64-linux",
			"x86_64-darwin", "aarch64-darwin",
		}
	}
}

func (p *Project) validate() error {
	if p.Name == "" {
		return eris.New("name must not be empty")
	}
	if p.Module == "" {
		return eris.New("module must not be empty")
	}
	if p.Entrypoint == "" {
		return eris.New("entrypoint must not be empty")
	}
	if p.Test != nil && len(p.Test.Command) == 0 {
		return eris.New("test block needs a non-empty command")
	}
	if p.Fmt != nil && len(p.Fmt.Command) == 0 {
		return eris.New("fmt block needs a non-empty command")
	}

	return nil
}

// AbsSourceDir resolves the source directory against the manifest root.
func (p *Project) AbsSourceDir() string {
	return p.absPath(p.SourceDir)
}

// AbsLockfile resolves the lockfile path against the manifest root.
func (p *Project) AbsLockfile() string {
	return p.absPath(p.Lockfile)
}

func (p *Project) absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Root, path)
}

package orchestrator

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Requirement is a single pinned dependency from the exported lockfile.
type Requirement struct {
	Name    string
	Version string
}

func (r Requirement) String() string {
	return r.Name + "==" + r.Version
}

// ParseRequirements parses a flat, hash-free requirements list in
// name==version format. Comments and blank lines are skipped; anything
// else, including integrity hashes, is rejected.
func ParseRequirements(data []byte) ([]Requirement, error) {
	result := make([]Requirement, 0)

	for idx, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, "--hash") {
			return nil, eris.Errorf("line %d carries an integrity hash, expected a hash-free export", idx+1)
		}

		name, version, found := strings.Cut(line, "==")
		if !found || name == "" || version == "" {
			return nil, eris.Errorf("line %d is not a name==version pin: %s", idx+1, line)
		}

		result = append(result, Requirement{Name: name, Version: strings.TrimSpace(version)})
	}

	return result, nil
}

// FormatRequirements renders requirements back into the newline-delimited
// format the installer consumes.
func FormatRequirements(reqs []Requirement) []byte {
	buffer := bytes.Buffer{}
	for _, req := range reqs {
		buffer.WriteString(req.String())
		buffer.WriteString("\n")
	}

	return buffer.Bytes()
}

// DependencyManager is the capability the orchestrator needs from the
// backing package manager. The orchestrator never assumes a specific tool,
// only this contract.
type DependencyManager interface {
	// ExportRequirements translates the lockfile into a flat, hash-free
	// requirements list.
	ExportRequirements(ctx context.Context, lockfile string) ([]Requirement, error)
	// Install places every requirement into targetDir. It must be
	// deterministic given the same requirement list.
	Install(ctx context.Context, reqs []Requirement, targetDir string) error
}

// UVManager implements DependencyManager by shelling out to uv.
type UVManager struct {
	// Exe is the uv executable, "uv" by default.
	Exe    string
	Config BuildConfig
}

func (m *UVManager) exe() string {
	if m.Exe == "" {
		return "uv"
	}
	return m.Exe
}

func (m *UVManager) ExportRequirements(ctx context.Context, lockfile string) ([]Requirement, error) {
	cmd := exec.CommandContext(ctx, m.exe(), "export",
		"--frozen", "--no-hashes", "--no-emit-project",
		"--format", "requirements-txt")
	cmd.Dir = filepath.Dir(lockfile)
	cmd.Env = m.Config.Environ()
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to export %s", lockfile)
	}

	reqs, err := ParseRequirements(output)
	if err != nil {
		return nil, eris.Wrap(err, "uv produced an unexpected export")
	}

	return reqs, nil
}

func (m *UVManager) Install(ctx context.Context, reqs []Requirement, targetDir string) error {
	err := os.MkdirAll(targetDir, 0755)
	if err != nil {
		return eris.Wrapf(err, "failed to create target directory %s", targetDir)
	}

	reqFile := filepath.Join(m.Config.TempRoot, "requirements.txt")
	err = os.WriteFile(reqFile, FormatRequirements(reqs), 0644)
	if err != nil {
		return eris.Wrapf(err, "failed to write %s", reqFile)
	}

	cmd := exec.CommandContext(ctx, m.exe(), "pip", "install",
		"--no-deps", "--requirements", reqFile, "--target", targetDir)
	cmd.Env = m.Config.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	if err != nil {
		return eris.Wrapf(err, "failed to install %d requirements into %s", len(reqs), targetDir)
	}

	return nil
}

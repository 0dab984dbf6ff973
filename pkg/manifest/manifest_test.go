package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "build.hcl")
	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeManifest(t, `
name       = "execution-handler"
module     = "src"
entrypoint = "execution_handler.py"
`)

	project, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if project.SourceDir != "." {
		t.Errorf("source_dir default = %q, want .", project.SourceDir)
	}
	if project.Lockfile != "uv.lock" {
		t.Errorf("lockfile default = %q, want uv.lock", project.Lockfile)
	}
	if project.Interpreter != "python3" {
		t.Errorf("interpreter default = %q, want python3", project.Interpreter)
	}
	if len(project.Platforms) != 4 {
		t.Errorf("expected the four supported platforms by default, got %v", project.Platforms)
	}
	if project.Root != filepath.Dir(path) {
		t.Errorf("root = %q, want %q", project.Root, filepath.Dir(path))
	}
}

func TestLoadFullManifest(t *testing.T) {
	path := writeManifest(t, `
name       = "execution-handler"
module     = "src"
entrypoint = "execution_handler.py"
lockfile   = "locks/uv.lock"

test {
  command = ["pytest", "tests"]
}

fmt {
  command    = ["treefmt"]
  check_args = ["--fail-on-change"]
}
`)

	project, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if project.Test == nil || len(project.Test.Command) != 2 {
		t.Errorf("test block not decoded: %+v", project.Test)
	}
	if project.Fmt == nil || project.Fmt.CheckArgs[0] != "--fail-on-change" {
		t.Errorf("fmt block not decoded: %+v", project.Fmt)
	}

	want := filepath.Join(filepath.Dir(path), "locks", "uv.lock")
	if project.AbsLockfile() != want {
		t.Errorf("AbsLockfile = %q, want %q", project.AbsLockfile(), want)
	}
}

func TestLoadEvaluatesPlatformExpressions(t *testing.T) {
	path := writeManifest(t, `
name        = "execution-handler"
module      = "src"
entrypoint  = "execution_handler.py"
interpreter = os == "plan9" ? "python9" : "python3"
`)

	project, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if project.Interpreter != "python3" {
		t.Errorf("interpreter = %q, want python3", project.Interpreter)
	}
}

func TestLoadRejectsIncompleteManifests(t *testing.T) {
	cases := map[string]string{
		"missing name": `
module     = "src"
entrypoint = "main.py"
`,
		"empty test command": `
name       = "x"
module     = "src"
entrypoint = "main.py"

test {
  command = []
}
`,
	}

	for label, content := range cases {
		path := writeManifest(t, content)
		_, err := Load(path)
		if err == nil {
			t.Errorf("%s: expected an error", label)
		}
	}
}

package taskrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return WithLogger(context.Background(), &logger)
}

func writeScript(t *testing.T, content string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.star")
	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	return path, dir
}

func TestLoadScriptCollectsTasks(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    task(
        name = "build",
        desc = "Build everything",
        cmds = ["echo build"],
    )

    task(
        name = "test",
        desc = "Run tests",
        deps = ["build"],
        cmds = ["echo test"],
    )
`)

	tasks, _, err := LoadScript(testContext(), path, dir, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}

	build, ok := tasks["build"]
	if !ok {
		t.Fatal("task build not found")
	}
	if build.Desc != "Build everything" {
		t.Errorf("unexpected description %q", build.Desc)
	}

	test := tasks["test"]
	if len(test.Deps) != 1 || test.Deps[0] != "build" {
		t.Errorf("unexpected deps %v", test.Deps)
	}
}

func TestLoadScriptOptions(t *testing.T) {
	path, dir := writeScript(t, `
target = option("target", default = "dist", help = "output directory")

def configure():
    task(name = "build", cmds = ["echo " + target])
`)

	_, options, err := LoadScript(testContext(), path, dir, map[string]string{"target": "out"}, true)
	if err != nil {
		t.Fatal(err)
	}

	opt, ok := options["target"]
	if !ok {
		t.Fatal("option target not declared")
	}
	if opt.DefaultValue != "dist" {
		t.Errorf("unexpected default %q", opt.DefaultValue)
	}

	// the override must reach the task body
	tasks, _, err := LoadScript(testContext(), path, dir, map[string]string{"target": "out"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if tasks["build"].Cmds[0].Script != "echo out" {
		t.Errorf("option override did not reach the task: %q", tasks["build"].Cmds[0].Script)
	}
}

func TestLoadScriptEnvOverridesReachTasks(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    setenv("BUILD_MODE", "release")
    task(name = "build", cmds = ["echo $BUILD_MODE"])
`)

	tasks, _, err := LoadScript(testContext(), path, dir, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if tasks["build"].Env["BUILD_MODE"] != "release" {
		t.Errorf("setenv value did not propagate: %v", tasks["build"].Env)
	}
}

func TestLoadScriptRequiresConfigure(t *testing.T) {
	path, dir := writeScript(t, `x = 1`)

	_, _, err := LoadScript(testContext(), path, dir, nil, true)
	if err == nil {
		t.Fatal("a script without a configure function must be rejected")
	}
}

func TestLoadScriptRejectsOptionInsideConfigure(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    option("late", default = "nope")
`)

	_, _, err := LoadScript(testContext(), path, dir, nil, true)
	if err == nil {
		t.Fatal("option() outside the init phase must be rejected")
	}
}

func TestLoadScriptTaskRefsAndHiddenTasks(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    helper = task(hidden = True, cmds = ["echo helper"])
    task(name = "main", cmds = [helper, "echo main"])
`)

	tasks, _, err := LoadScript(testContext(), path, dir, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if len(tasks) != 1 {
		t.Fatalf("hidden tasks must not be listed, got %d tasks", len(tasks))
	}

	main := tasks["main"]
	if len(main.Cmds) != 2 || main.Cmds[0].Ref == nil || main.Cmds[1].Script != "echo main" {
		t.Errorf("unexpected command list %+v", main.Cmds)
	}
}

package taskrunner

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func shellTask(name, base string, cmds ...string) *Task {
	task := &Task{
		Name: name,
		Base: base,
		Env:  map[string]string{},
	}

	for _, cmd := range cmds {
		task.Cmds = append(task.Cmds, Command{Script: cmd})
	}

	return task
}

func TestRunTaskExecutesShellCommands(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"build": shellTask("build", dir, `printf hello > out.txt`),
	}

	err := RunTask(testContext(), dir, "build", tasks, false, false)
	if err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello" {
		t.Errorf("unexpected output %q", content)
	}
}

func TestRunTaskRunsDepsFirst(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"prepare": shellTask("prepare", dir, `printf 'prepare\n' >> order.log`),
		"build":   shellTask("build", dir, `printf 'build\n' >> order.log`),
	}
	tasks["build"].Deps = []string{"prepare"}

	err := RunTask(testContext(), dir, "build", tasks, false, false)
	if err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "order.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "prepare\nbuild\n" {
		t.Errorf("unexpected execution order:\n%s", content)
	}
}

func TestRunTaskRunsSharedDepOnce(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"common": shellTask("common", dir, `printf x >> common.log`),
		"left":   shellTask("left", dir, `true`),
		"right":  shellTask("right", dir, `true`),
		"all":    shellTask("all", dir, `true`),
	}
	tasks["left"].Deps = []string{"common"}
	tasks["right"].Deps = []string{"common"}
	tasks["all"].Deps = []string{"left", "right"}

	err := RunTask(testContext(), dir, "all", tasks, false, false)
	if err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "common.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "x" {
		t.Errorf("shared dependency ran %d times", len(content))
	}
}

func TestRunTaskDetectsCycles(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"a": shellTask("a", dir, `true`),
		"b": shellTask("b", dir, `true`),
	}
	tasks["a"].Deps = []string{"b"}
	tasks["b"].Deps = []string{"a"}

	err := RunTask(testContext(), dir, "a", tasks, false, false)
	if err == nil {
		t.Fatal("a dependency cycle must be reported")
	}
}

func TestRunTaskUnknownTask(t *testing.T) {
	err := RunTask(testContext(), t.TempDir(), "nope", TaskList{}, false, false)
	if err == nil {
		t.Fatal("an unknown task must be reported")
	}
}

func TestRunTaskDryRun(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"build": shellTask("build", dir, `printf hello > out.txt`),
	}

	err := RunTask(testContext(), dir, "build", tasks, true, false)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "out.txt")); err == nil {
		t.Error("dry run must not execute commands")
	}
}

func TestRunTaskSkipIfExists(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "done.stamp")
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	task := shellTask("build", dir, `printf hello > out.txt`)
	task.SkipIfExists = []string{"done.stamp"}
	tasks := TaskList{"build": task}

	err := RunTask(testContext(), dir, "build", tasks, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt")); err == nil {
		t.Error("task should have been skipped, the stamp file exists")
	}

	// force overrides the skip list
	err = RunTask(testContext(), dir, "build", tasks, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt")); err != nil {
		t.Error("forced run did not execute the task")
	}
}

func TestRunTaskFreshOutputsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	output := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(input, []byte("source"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(output, []byte("built"), 0644); err != nil {
		t.Fatal(err)
	}

	// backdate the input so the output is clearly newer
	info, err := os.Stat(output)
	if err != nil {
		t.Fatal(err)
	}
	old := info.ModTime().Add(-time.Minute)
	if err := os.Chtimes(input, old, old); err != nil {
		t.Fatal(err)
	}

	task := shellTask("build", dir, `printf rebuilt > out.txt`)
	task.Inputs = []string{"in.txt"}
	task.Outputs = []string{"out.txt"}
	tasks := TaskList{"build": task}

	err = RunTask(testContext(), dir, "build", tasks, false, false)
	if err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "built" {
		t.Error("fresh output was rebuilt")
	}
}

func TestRunTaskNestedCommandRefs(t *testing.T) {
	dir := t.TempDir()
	helper := shellTask("helper", dir, `printf 'helper\n' >> order.log`)
	helper.Hidden = true

	main := shellTask("main", dir, `printf 'main\n' >> order.log`)
	main.Cmds = append([]Command{{Ref: helper}}, main.Cmds...)

	tasks := TaskList{"main": main}
	err := RunTask(testContext(), dir, "main", tasks, false, false)
	if err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "order.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "helper\nmain\n" {
		t.Errorf("unexpected execution order:\n%s", content)
	}
}

// Package taskrunner executes the tasks declared in the project's
// tasks.star file. Task bodies are POSIX shell snippets which run in an
// embedded interpreter, so tasks behave the same on every supported
// platform.
package taskrunner

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// Task is the processed result of one task() call in the script.
type Task struct {
	Name         string
	Desc         string
	Base         string
	Env          map[string]string
	Deps         []string
	Inputs       []string
	Outputs      []string
	SkipIfExists []string
	// Cmds holds shell snippets (string) and direct task references
	// (*Task), in declaration order.
	Cmds   []Command
	Hidden bool
}

// Command is either a shell snippet or a reference to another task.
type Command struct {
	Script string
	Ref    *Task
}

// TaskList maps task names to their definitions.
type TaskList map[string]*Task

// ScriptOption is an option() declared by the script, overridable from the
// command line as name=value.
type ScriptOption struct {
	DefaultValue string
	Help         string
}

// String returns a string representation of the task
func (t *Task) String() string {
	return fmt.Sprintf("<task %s: %s>", t.Name, t.Desc)
}

// Type always returns "task" to indicate this type
func (t *Task) Type() string {
	return "task"
}

// Freeze doesn't do anything since tasks are immutable anyway
func (t *Task) Freeze() {}

// Truth always returns true since a task can't be nil or None
func (t *Task) Truth() starlark.Bool {
	return starlark.True
}

// Hash always returns an error since tasks aren't hashable
func (t *Task) Hash() (uint32, error) {
	return 0, eris.New("task is not a hashable type")
}

package taskrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	runtimeCtxKey struct{}
	runtimeCtx    struct {
		runTasks    map[string]bool
		projectRoot string
	}
)

func getRuntimeCtx(ctx context.Context) *runtimeCtx {
	return ctx.Value(runtimeCtxKey{}).(*runtimeCtx)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

func shellReadDir(path string) ([]os.FileInfo, error) {
	if path == "" {
		path = "."
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// resolvePatterns expands glob patterns relative to base.
func resolvePatterns(ctx context.Context, base string, patterns []string) ([]string, error) {
	result := []string{}
	cfg := expand.Config{
		ReadDir:  shellReadDir,
		GlobStar: true,
	}

	parser := syntax.NewParser()
	parserCtx := &scriptCtx{
		filepath:    "invalid",
		projectRoot: getRuntimeCtx(ctx).projectRoot,
	}

	for _, item := range patterns {
		item = normalizePath(parserCtx, base, item)
		item = filepath.ToSlash(item)

		words := make([]*syntax.Word, 0)
		parser.Words(strings.NewReader(item), func(w *syntax.Word) bool {
			words = append(words, w)
			return true
		})

		matches, err := expand.Fields(&cfg, words...)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", item)
		}

		for _, match := range matches {
			// an unmatched pattern is returned verbatim, skip those
			if !strings.Contains(match, "*") {
				result = append(result, match)
			}
		}
	}
	return result, nil
}

// RunTask executes the named task and its dependencies.
func RunTask(ctx context.Context, projectRoot, name string, tasks TaskList, dryRun, force bool) error {
	rctx := runtimeCtx{
		projectRoot: projectRoot,
		runTasks:    make(map[string]bool),
	}

	ctx = context.WithValue(ctx, runtimeCtxKey{}, &rctx)
	task, found := tasks[name]
	if !found {
		return eris.Errorf("task %s not found", name)
	}

	return runTaskInternal(ctx, task, tasks, dryRun, force, true)
}

func runTaskInternal(ctx context.Context, task *Task, tasks TaskList, dryRun, force, canSkip bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	rctx := getRuntimeCtx(ctx)
	done, started := rctx.runTasks[task.Name]
	if started {
		if done {
			log(ctx).Debug().Msgf("task %s already run", task.Name)
			return nil
		}

		return eris.Errorf("task %s was called recursively", task.Name)
	}

	rctx.runTasks[task.Name] = false

	for _, dep := range task.Deps {
		if !rctx.runTasks[dep] {
			depTask, ok := tasks[dep]
			if !ok {
				return eris.Errorf("task %s not found", dep)
			}

			err := runTaskInternal(ctx, depTask, tasks, dryRun, false, true)
			if err != nil {
				return eris.Wrapf(err, "task %s failed due to its dependency %s", task.Name, dep)
			}
		}
	}

	skip, err := shouldSkip(ctx, task, canSkip && !force, !force)
	if err != nil {
		return err
	}
	if skip {
		rctx.runTasks[task.Name] = true
		return nil
	}

	runner, err := interp.New(
		interp.Dir(task.Base),
		interp.Env(expand.ListEnviron(getEnvVars(task.Env)...)),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, os.Stdout, os.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	strBuffer := strings.Builder{}

	for idx, item := range task.Cmds {
		if item.Ref != nil {
			err = runTaskInternal(ctx, item.Ref, tasks, dryRun, force, true)
			if err != nil {
				return err
			}
			continue
		}

		parsed, err := parser.Parse(strings.NewReader(item.Script), fmt.Sprintf("%s:%d", task.Name, idx))
		if err != nil {
			return eris.Wrapf(err, "failed to parse command %s", item.Script)
		}

		for _, stmt := range parsed.Stmts {
			strBuffer.Reset()
			printer.Print(&strBuffer, stmt)
			log(ctx).Info().
				Str("task", task.Name).
				Bool("command", true).
				Msg(strBuffer.String())

			if dryRun {
				continue
			}

			err = runner.Run(ctx, stmt)
			if err != nil {
				return err
			}

			if runner.Exited() {
				return nil
			}
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	rctx.runTasks[task.Name] = true
	return nil
}

// shouldSkip implements the skip_if_exists and input/output freshness
// checks.
func shouldSkip(ctx context.Context, task *Task, checkExists, checkFreshness bool) (bool, error) {
	if checkExists && len(task.SkipIfExists) > 0 {
		skipList, err := resolvePatterns(ctx, task.Base, task.SkipIfExists)
		if err != nil {
			return false, eris.Wrap(err, "failed to resolve skip_if_exists list")
		}

		found := 0
		for _, item := range skipList {
			_, err := os.Stat(item)
			if err == nil {
				found++
			} else if !eris.Is(err, os.ErrNotExist) {
				return false, eris.Wrapf(err, "failed to check %s", item)
			}
		}

		if found > 0 && found == len(skipList) {
			log(ctx).Info().
				Str("task", task.Name).
				Msg("skipped because all skip files exist")
			return true, nil
		}
	}

	if !checkFreshness {
		return false, nil
	}

	var newestInput time.Time
	inputList, err := resolvePatterns(ctx, task.Base, task.Inputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve inputs")
	}

	outputList, err := resolvePatterns(ctx, task.Base, task.Outputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve outputs")
	}

	for _, item := range inputList {
		info, err := os.Stat(item)
		if err != nil {
			return false, eris.Wrapf(err, "failed to check input %s", item)
		}

		if info.ModTime().After(newestInput) {
			newestInput = info.ModTime()
		}
	}

	if newestInput.IsZero() {
		return false, nil
	}

	var newestOutput time.Time
	for _, item := range outputList {
		info, err := os.Stat(item)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, eris.Wrapf(err, "failed to check output %s", item)
		}

		if info.ModTime().After(newestOutput) {
			newestOutput = info.ModTime()
		}
	}

	if newestOutput.After(newestInput) {
		log(ctx).Info().
			Str("task", task.Name).
			Msgf("nothing to do (output is %.0f seconds newer)", newestOutput.Sub(newestInput).Seconds())
		return true, nil
	}

	return false, nil
}

// builtinExecute runs a shell snippet during script evaluation and returns
// its output, optionally decoded as JSON.
func builtinExecute(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var command string
	var outputFormat string
	var showError bool

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "command", &command, "format?", &outputFormat, "show_error?", &showError)
	if err != nil {
		return nil, err
	}

	if outputFormat == "" {
		outputFormat = "text"
	}

	if outputFormat != "text" && outputFormat != "json" {
		return nil, eris.Errorf("unsupported format %s", outputFormat)
	}

	ctx := getCtx(thread)
	base := filepath.Dir(ctx.filepath)

	parser := syntax.NewParser()
	parsed, err := parser.Parse(strings.NewReader(command), fn.Name())
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", command)
	}

	outputBuffer := strings.Builder{}
	errOut := os.Stderr
	if !showError {
		errOut = nil
	}

	runner, err := interp.New(
		interp.Dir(base),
		interp.Env(expand.ListEnviron(getEnvVars(ctx.envOverrides)...)),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, &outputBuffer, errOut),
		interp.Params("-e"),
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to initialize runner")
	}

	for _, stmt := range parsed.Stmts {
		err := runner.Run(ctx.ctx, stmt)
		if err != nil {
			if showError {
				log(ctx.ctx).Error().Err(err).Msg("shell error")
			}
			return starlark.False, nil
		}
	}

	if outputFormat == "json" {
		var decoded interface{}
		err = json.Unmarshal([]byte(outputBuffer.String()), &decoded)
		if err != nil {
			return nil, eris.Wrap(err, "failed to parse command output")
		}

		return jsonToStarlark(decoded)
	}

	return starlark.String(outputBuffer.String()), nil
}

// jsonToStarlark converts decoded JSON into starlark values.
func jsonToStarlark(value interface{}) (starlark.Value, error) {
	switch value := value.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(value), nil
	case string:
		return starlark.String(value), nil
	case float64:
		if value == float64(int64(value)) {
			return starlark.MakeInt64(int64(value)), nil
		}
		return starlark.Float(value), nil
	case []interface{}:
		items := make(starlark.Tuple, len(value))
		for idx, raw := range value {
			item, err := jsonToStarlark(raw)
			if err != nil {
				return nil, err
			}
			items[idx] = item
		}
		return items, nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(value))
		for key, raw := range value {
			item, err := jsonToStarlark(raw)
			if err != nil {
				return nil, err
			}

			err = dict.SetKey(starlark.String(key), item)
			if err != nil {
				return nil, err
			}
		}
		return dict, nil
	}

	return nil, eris.Errorf("encountered unsupported type %T", value)
}

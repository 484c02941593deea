// Package script runs Starlark pipeline scripts. A script drives one
// Shell through predeclared builtins that mirror the builder surface,
// so a script reads like the shell session it replaces:
//
//	input("SoMe WeIrd DaTa\n")
//	sh("sha256sum")
//	digest = run().stdout
package script

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/marcelocantos/gosh/internal/pipeline"
)

// Engine binds a Shell to a Starlark interpreter.
type Engine struct {
	ctx context.Context
	sh  *pipeline.Shell
}

// NewEngine returns an engine driving sh. ctx bounds every pipeline run
// the script triggers.
func NewEngine(ctx context.Context, sh *pipeline.Shell) *Engine {
	return &Engine{ctx: ctx, sh: sh}
}

// Shell returns the engine's underlying shell, whose accessors reflect
// the script's last run.
func (en *Engine) Shell() *pipeline.Shell { return en.sh }

// RunFile executes the script at path.
func (en *Engine) RunFile(path string) (starlark.StringDict, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return en.Run(path, src)
}

// Run executes src and returns the script's global bindings.
func (en *Engine) Run(name string, src []byte) (starlark.StringDict, error) {
	thread := &starlark.Thread{Name: "gosh"}
	globals, err := starlark.ExecFile(thread, name, src, en.predeclared())
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return nil, fmt.Errorf("script: %s", evalErr.Backtrace())
		}
		return nil, err
	}
	return globals, nil
}

func (en *Engine) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"sh":     starlark.NewBuiltin("sh", en.shBuiltin),
		"pipe":   starlark.NewBuiltin("pipe", en.pipeBuiltin),
		"input":  starlark.NewBuiltin("input", en.inputBuiltin),
		"run":    starlark.NewBuiltin("run", en.runBuiltin),
		"output": starlark.NewBuiltin("output", en.outputBuiltin),
		"argv":   starlark.NewBuiltin("argv", en.argvBuiltin),
	}
}

// sh(command, stdout="inherit", stderr="inherit", stdin="default", dir="")
// appends a stage.
func (en *Engine) shBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var command, stdout, stderr, stdin, dir string
	err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"command", &command, "stdout?", &stdout, "stderr?", &stderr, "stdin?", &stdin, "dir?", &dir)
	if err != nil {
		return nil, err
	}

	spec := pipeline.StageSpec{Dir: dir}
	if spec.Stdout, err = pipeline.ParseStdoutDest(stdout); err != nil {
		return nil, err
	}
	if spec.Stderr, err = pipeline.ParseStderrDest(stderr); err != nil {
		return nil, err
	}
	if spec.Stdin, err = pipeline.ParseStdinSource(stdin); err != nil {
		return nil, err
	}
	if err := en.sh.AddSpec(command, spec); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

// pipe(command) marks the previous stage's stdout as piped, then
// appends the command. On an empty pipeline it is just sh(command).
func (en *Engine) pipeBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var command string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "command", &command); err != nil {
		return nil, err
	}
	// Non-failing pipe marker: the first command in a script has nothing
	// before it to pipe.
	_ = en.sh.Pipe()
	if err := en.sh.Add(command); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

// input(data) stores the pipeline's pending input buffer.
func (en *Engine) inputBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data); err != nil {
		return nil, err
	}
	if err := en.sh.SetInput(data); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

// run() executes the pending stages and returns a result struct.
func (en *Engine) runBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	res, err := en.sh.Run(en.ctx)
	if err != nil {
		return nil, err
	}
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"exit_code": starlark.MakeInt(res.ExitCode),
		"stdout":    starlark.String(res.Stdout),
		"stderr":    starlark.String(res.Stderr),
		"output":    starlark.String(res.Output()),
		"signal":    starlark.String(res.Signal),
		"success":   starlark.Bool(res.Success()),
	}), nil
}

// output() runs any pending stages and returns stdout, else stderr,
// else "".
func (en *Engine) outputBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	out, err := en.sh.Output()
	if err != nil {
		return nil, err
	}
	return starlark.String(out), nil
}

// argv(index, default="") returns the script's invocation argument.
func (en *Engine) argvBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var index int
	var def string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "index", &index, "default?", &def); err != nil {
		return nil, err
	}
	return starlark.String(en.sh.Argv(index, def)), nil
}

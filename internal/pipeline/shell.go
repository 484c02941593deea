package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/google/shlex"
)

// Shell accumulates pipeline stages and executes them, the way an
// interactive shell composes `a | b | c`. Stages are validated as they
// are added; execution only ever sees a well-routed pipeline. Not safe
// for concurrent use.
type Shell struct {
	exec     *Executor
	stages   []*Stage
	input    []byte
	hasInput bool
	args     []string
	defaults StageSpec
	result   Result
}

// New returns an empty Shell. args is the argv-style vector exposed
// through Argv; pass os.Args at top level, or nil when the caller's
// invocation arguments are irrelevant.
func New(args []string) *Shell {
	return &Shell{exec: NewExecutor(), args: args}
}

// Executor returns the underlying executor, for stream overrides.
func (sh *Shell) Executor() *Executor { return sh.exec }

// SetDefaults sets the working directory and environment applied to
// stages that don't specify their own.
func (sh *Shell) SetDefaults(dir string, env []string) {
	sh.defaults.Dir = dir
	sh.defaults.Env = env
}

// Add tokenizes command and appends a stage with default routing.
func (sh *Shell) Add(command string) error {
	return sh.AddSpec(command, StageSpec{})
}

// AddSpec tokenizes command and appends a stage with the given routing
// request. Routing problems surface here, never at run time.
func (sh *Shell) AddSpec(command string, spec StageSpec) error {
	argv, err := shlex.Split(command)
	if err != nil {
		return fmt.Errorf("tokenize %q: %w", command, err)
	}
	return sh.AddArgv(argv, spec)
}

// AddArgv appends a stage from a pre-tokenized argument vector.
func (sh *Shell) AddArgv(argv []string, spec StageSpec) error {
	if err := validateSpec(argv, spec); err != nil {
		return err
	}
	var prev *Stage
	if len(sh.stages) > 0 {
		prev = sh.stages[len(sh.stages)-1]
	}
	stdin, err := resolveStdin(argv, prev, spec.Stdin, prev == nil && sh.hasInput)
	if err != nil {
		return err
	}
	if spec.Dir == "" {
		spec.Dir = sh.defaults.Dir
	}
	if spec.Env == nil {
		spec.Env = sh.defaults.Env
	}
	sh.stages = append(sh.stages, &Stage{
		Command: argv,
		Stdin:   stdin,
		Stdout:  spec.Stdout,
		Stderr:  spec.Stderr,
		Dir:     spec.Dir,
		Env:     spec.Env,
	})
	return nil
}

// Pipe marks the last stage's stdout as piped, feeding whatever stage
// is added next. Fails when no stage exists yet.
func (sh *Shell) Pipe() error {
	if len(sh.stages) == 0 {
		return ErrEmptyPipeline
	}
	sh.stages[len(sh.stages)-1].Stdout = StdoutPipe
	return nil
}

// pipeLast is the non-failing variant of Pipe used when a run
// opportunistically captures the trailing stage's output. An explicit
// devnull or merge routing is left alone.
func (sh *Shell) pipeLast() {
	if len(sh.stages) == 0 {
		return
	}
	last := sh.stages[len(sh.stages)-1]
	if last.Stdout == StdoutInherit {
		last.Stdout = StdoutPipe
	}
}

// SetInput stores data to be written to the first stage's stdin when
// the pipeline runs. Input cannot be injected once stages exist.
func (sh *Shell) SetInput(data string) error {
	if len(sh.stages) != 0 {
		return ErrInputAfterStages
	}
	sh.input = []byte(data)
	sh.hasInput = true
	return nil
}

// take hands the pending stages and input buffer over to a run and
// clears them, so a failed run can never be accidentally re-executed.
func (sh *Shell) take() ([]*Stage, []byte) {
	stages, input := sh.stages, sh.input
	sh.stages, sh.input, sh.hasInput = nil, nil, false
	if len(stages) > 0 && stages[0].Stdin != StdinExternal {
		input = nil
	}
	return stages, input
}

// Run executes the pending stages and captures the last stage's piped
// stream. With no pending stages it is a no-op returning the previous
// result. The pending stage list is cleared whether or not the run
// succeeds.
func (sh *Shell) Run(ctx context.Context) (Result, error) {
	if len(sh.stages) == 0 {
		return sh.result, nil
	}
	sh.pipeLast()
	stages, input := sh.take()

	if err := sh.exec.Start(ctx, stages); err != nil {
		return Result{}, err
	}
	if len(input) > 0 {
		if err := sh.exec.WriteInput(input); err != nil {
			sh.exec.Abort()
			return Result{}, err
		}
	}
	sh.exec.CloseStdin()

	res, err := sh.exec.Collect()
	if err != nil {
		return Result{}, err
	}
	sh.result = res
	return res, nil
}

// Session exposes live stream access to a pipeline handed off by
// Inject. While a session is active the caller is responsible for
// avoiding deadlock: a fixed-size OS pipe buffer fills up if input is
// written unboundedly while output goes unread.
type Session struct {
	e *Executor
}

// Write sends data to the first stage's stdin.
func (s *Session) Write(p []byte) (int, error) {
	if s.e.stdin == nil {
		return 0, ErrStdinNotPiped
	}
	return s.e.stdin.Write(p)
}

// WriteString sends a string to the first stage's stdin.
func (s *Session) WriteString(str string) error {
	_, err := s.Write([]byte(str))
	return err
}

// CloseStdin signals end-of-input to the first stage.
func (s *Session) CloseStdin() error { return s.e.CloseStdin() }

// ReadStdout returns up to n bytes of the last stage's stdout, blocking
// until something is available. At end-of-stream it returns "".
func (s *Session) ReadStdout(n int) (string, error) {
	p := make([]byte, n)
	m, err := s.e.ReadStdout(p)
	if err != nil && err != io.EOF {
		return "", err
	}
	return string(p[:m]), nil
}

// ReadStderr is ReadStdout for the last stage's stderr.
func (s *Session) ReadStderr(n int) (string, error) {
	p := make([]byte, n)
	m, err := s.e.ReadStderr(p)
	if err != nil && err != io.EOF {
		return "", err
	}
	return string(p[:m]), nil
}

// Inject runs the pending stages but hands live stream access to fn
// instead of draining to completion. When fn returns cleanly the
// remaining output is drained and the result recorded; when fn fails or
// panics every process is killed and every handle closed before the
// error (or panic) propagates. closeStdin says whether end-of-input is
// signalled as soon as the stages are spawned; pass false to keep
// writing interactively.
func (sh *Shell) Inject(ctx context.Context, closeStdin bool, fn func(*Session) error) error {
	if len(sh.stages) == 0 {
		return ErrEmptyPipeline
	}
	sh.pipeLast()
	stages, input := sh.take()

	// Interactive use needs a writable stdin, so an inherited first-stage
	// stdin becomes an input pipe. closeStdin then decides whether it
	// carries end-of-input immediately or stays open for Session writes.
	if stages[0].Stdin == StdinInherit {
		stages[0].Stdin = StdinExternal
	}

	if err := sh.exec.Start(ctx, stages); err != nil {
		return err
	}
	if len(input) > 0 {
		if err := sh.exec.WriteInput(input); err != nil {
			sh.exec.Abort()
			return err
		}
	}
	if closeStdin {
		sh.exec.CloseStdin()
	}

	done := false
	defer func() {
		if !done {
			sh.exec.Abort()
		}
	}()

	if err := fn(&Session{e: sh.exec}); err != nil {
		return err
	}
	res, err := sh.exec.Collect()
	done = true // Collect tears down on its own error path
	if err != nil {
		return err
	}
	sh.result = res
	return nil
}

// flush runs any pending stages so the accessors below always reflect
// the most recently described pipeline.
func (sh *Shell) flush() error {
	if len(sh.stages) == 0 {
		return nil
	}
	_, err := sh.Run(context.Background())
	return err
}

// ExitCode runs any pending stages and returns the last result's exit
// code.
func (sh *Shell) ExitCode() (int, error) {
	if err := sh.flush(); err != nil {
		return 0, err
	}
	return sh.result.ExitCode, nil
}

// Stdout runs any pending stages and returns the last captured stdout.
func (sh *Shell) Stdout() (string, error) {
	if err := sh.flush(); err != nil {
		return "", err
	}
	return sh.result.Stdout, nil
}

// Stderr runs any pending stages and returns the last captured stderr.
func (sh *Shell) Stderr() (string, error) {
	if err := sh.flush(); err != nil {
		return "", err
	}
	return sh.result.Stderr, nil
}

// Output runs any pending stages and returns stdout if non-empty, else
// stderr, else "".
func (sh *Shell) Output() (string, error) {
	if err := sh.flush(); err != nil {
		return "", err
	}
	return sh.result.Output(), nil
}

// Result runs any pending stages and returns the full result record.
func (sh *Shell) Result() (Result, error) {
	if err := sh.flush(); err != nil {
		return Result{}, err
	}
	return sh.result, nil
}

// Succeeded runs any pending stages and reports whether the last stage
// exited zero.
func (sh *Shell) Succeeded() (bool, error) {
	code, err := sh.ExitCode()
	return err == nil && code == 0, err
}

// Argv returns the indexed invocation argument the Shell was
// constructed with, or def when the index is out of range.
func (sh *Shell) Argv(index int, def string) string {
	if index < 0 || index >= len(sh.args) {
		return def
	}
	return sh.args[index]
}

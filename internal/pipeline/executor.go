package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Executor owns the live OS process handles for one pipeline run. It
// spawns stages strictly in order, wires the inter-stage pipes, and
// guarantees that every owned pipe end is closed and every process is
// reaped before control returns to the caller — on the normal path and
// on every failure path. Not safe for concurrent use; each Shell drives
// exactly one Executor.
//
// Pipe-endpoint ownership follows the usual exec discipline: an end
// assigned to an exec.Cmd is duplicated into the child by Start, so the
// parent's copy is closed immediately after Start succeeds. Ends the
// executor keeps (to write input, chain stages, or capture output) stay
// in the owned list until drained or torn down.
type Executor struct {
	baseStdin  io.Reader
	baseStdout io.Writer
	baseStderr io.Writer

	procs []*exec.Cmd
	owned []*os.File // parent-side pipe ends; each closed exactly once

	stdin  *os.File // write end feeding the first stage's external input
	stdout *os.File // read end of the last stage's piped stdout
	stderr *os.File // read end of the last stage's piped stderr
}

// NewExecutor returns an executor whose inherited routing targets the
// current process's own standard streams.
func NewExecutor() *Executor {
	return &Executor{
		baseStdin:  os.Stdin,
		baseStdout: os.Stdout,
		baseStderr: os.Stderr,
	}
}

// SetStdio overrides the streams used for inherited routing. A nil
// argument keeps the current value.
func (e *Executor) SetStdio(stdin io.Reader, stdout, stderr io.Writer) {
	if stdin != nil {
		e.baseStdin = stdin
	}
	if stdout != nil {
		e.baseStdout = stdout
	}
	if stderr != nil {
		e.baseStderr = stderr
	}
}

// Start spawns every stage in order. On any spawn failure all
// already-started processes are killed, every owned handle is closed,
// and the error is returned — a partially started pipeline is never
// left running.
func (e *Executor) Start(ctx context.Context, stages []*Stage) error {
	if err := validateStages(stages); err != nil {
		return err
	}
	e.Reset()

	var prevOut, prevErr *os.File
	for i, st := range stages {
		if err := e.startStage(ctx, i, st, &prevOut, &prevErr); err != nil {
			e.abort()
			return err
		}
	}
	e.stdout = prevOut
	e.stderr = prevErr
	return nil
}

func (e *Executor) startStage(ctx context.Context, i int, st *Stage, prevOut, prevErr **os.File) error {
	cmd := exec.CommandContext(ctx, st.Command[0], st.Command[1:]...)
	cmd.Dir = st.Dir
	cmd.Env = st.Env // nil inherits the parent environment

	// Ends handed to the child; the parent's copies are closed as soon
	// as Start succeeds so EOF propagates when the child exits.
	var childEnds []*os.File

	switch st.Stdin {
	case StdinInherit:
		cmd.Stdin = e.baseStdin
	case StdinDevNull:
		// exec treats nil Stdin as /dev/null.
	case StdinExternal:
		r, w, err := os.Pipe()
		if err != nil {
			return &SpawnError{Stage: i, Command: st.Command, Err: err}
		}
		cmd.Stdin = r
		childEnds = append(childEnds, e.own(r))
		e.stdin = e.own(w)
	case StdinPrevStdout:
		cmd.Stdin = *prevOut
		childEnds = append(childEnds, *prevOut)
		*prevOut = nil
	case StdinPrevStderr:
		cmd.Stdin = *prevErr
		childEnds = append(childEnds, *prevErr)
		*prevErr = nil
	}

	// A piped predecessor stream nobody consumes would block its writer
	// once the pipe fills. Closing it outright would SIGPIPE the writer
	// instead, so drain it to discard until the writer exits.
	if *prevOut != nil {
		e.discard(*prevOut)
		*prevOut = nil
	}
	if *prevErr != nil {
		e.discard(*prevErr)
		*prevErr = nil
	}

	var nextOut, nextErr *os.File
	switch st.Stdout {
	case StdoutInherit:
		cmd.Stdout = e.baseStdout
	case StdoutDevNull:
		// nil discards.
	case StdoutPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return &SpawnError{Stage: i, Command: st.Command, Err: err}
		}
		cmd.Stdout = w
		childEnds = append(childEnds, e.own(w))
		nextOut = e.own(r)
	case StdoutToStderr:
		// Resolved below, once stderr's target is known.
	}
	switch st.Stderr {
	case StderrInherit:
		cmd.Stderr = e.baseStderr
	case StderrDevNull:
	case StderrPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return &SpawnError{Stage: i, Command: st.Command, Err: err}
		}
		cmd.Stderr = w
		childEnds = append(childEnds, e.own(w))
		nextErr = e.own(r)
	case StderrToStdout:
		cmd.Stderr = cmd.Stdout
	}
	if st.Stdout == StdoutToStderr {
		cmd.Stdout = cmd.Stderr
	}

	if err := cmd.Start(); err != nil {
		return &SpawnError{Stage: i, Command: st.Command, Err: err}
	}
	e.procs = append(e.procs, cmd)

	for _, f := range childEnds {
		e.disown(f)
	}
	*prevOut = nextOut
	*prevErr = nextErr
	return nil
}

// WriteInput writes data to the first stage's stdin. It blocks if the
// data outgrows the OS pipe buffer and the first stage is not draining
// it — interactive mode exists so callers can interleave writes and
// reads instead.
func (e *Executor) WriteInput(p []byte) error {
	if e.stdin == nil {
		return ErrStdinNotPiped
	}
	_, err := e.stdin.Write(p)
	return err
}

// CloseStdin signals end-of-input to the first stage. Calling it with
// no input pipe, or twice, is harmless.
func (e *Executor) CloseStdin() error {
	if e.stdin == nil {
		return nil
	}
	f := e.stdin
	e.stdin = nil
	e.disown(f)
	return nil
}

// ReadStdout reads whatever the last stage's piped stdout currently
// holds, blocking until data or end-of-stream arrives.
func (e *Executor) ReadStdout(p []byte) (int, error) {
	if e.stdout == nil {
		return 0, ErrStreamNotCaptured
	}
	return e.stdout.Read(p)
}

// ReadStderr is ReadStdout for the last stage's piped stderr.
func (e *Executor) ReadStderr(p []byte) (int, error) {
	if e.stderr == nil {
		return 0, ErrStreamNotCaptured
	}
	return e.stderr.Read(p)
}

// Collect drains the captured stream(s) to end-of-stream, reaps every
// stage, and returns the run's result. Afterwards the executor holds no
// live handles. On a streaming or wait failure every process is killed
// before the error is returned.
func (e *Executor) Collect() (Result, error) {
	e.CloseStdin()

	// Both captured streams drain concurrently: reading one to EOF while
	// the stage is blocked writing the other would deadlock.
	outF, errF := e.stdout, e.stderr
	e.stdout, e.stderr = nil, nil
	if outF != nil {
		e.forget(outF)
	}
	if errF != nil {
		e.forget(errF)
	}

	type drained struct {
		data string
		err  error
	}
	errCh := make(chan drained, 1)
	go func() {
		data, err := readAndClose(errF)
		errCh <- drained{data, err}
	}()
	out, outErr := readAndClose(outF)
	errRes := <-errCh
	if outErr != nil {
		e.abort()
		return Result{}, fmt.Errorf("drain stdout: %w", outErr)
	}
	if errRes.err != nil {
		e.abort()
		return Result{}, fmt.Errorf("drain stderr: %w", errRes.err)
	}
	errOut := errRes.data

	code, signal, err := e.waitAll()
	if err != nil {
		e.abort()
		return Result{}, err
	}
	e.procs = nil
	e.closeOwned()

	return Result{
		ExitCode: code,
		Stdout:   trimNewline(out),
		Stderr:   trimNewline(errOut),
		Signal:   signal,
	}, nil
}

// Abort kills every live process unconditionally and releases every
// owned handle. Best effort: secondary failures are swallowed so the
// caller's original error can propagate.
func (e *Executor) Abort() { e.abort() }

// Reset force-releases anything left over from a previous run. Start
// calls it automatically.
func (e *Executor) Reset() {
	if len(e.procs) != 0 || len(e.owned) != 0 {
		e.abort()
	}
	e.stdin, e.stdout, e.stderr = nil, nil, nil
}

// readAndClose reads f to end-of-stream and closes it. The caller has
// already removed f from the owned list, so it is safe off the
// executor's goroutine.
func readAndClose(f *os.File) (string, error) {
	if f == nil {
		return "", nil
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// waitAll reaps every stage in order and reports the last stage's
// status. A signal-terminated last stage reports 128+signum and the
// signal name rather than the original's silent zero.
func (e *Executor) waitAll() (code int, signal string, err error) {
	for i, cmd := range e.procs {
		werr := cmd.Wait()
		if werr == nil {
			continue
		}
		var exitErr *exec.ExitError
		if !errors.As(werr, &exitErr) {
			return 0, "", fmt.Errorf("wait stage %d: %w", i, werr)
		}
		if i != len(e.procs)-1 {
			// Earlier-stage failures are not surfaced; only $? of the
			// last stage matters.
			continue
		}
		code = exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			code = 128 + int(ws.Signal())
			signal = ws.Signal().String()
		} else if code < 0 {
			code = 0
		}
	}
	return code, signal, nil
}

func (e *Executor) abort() {
	for _, cmd := range e.procs {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
	for _, cmd := range e.procs {
		_ = cmd.Wait()
	}
	e.procs = nil
	e.closeOwned()
	e.stdin, e.stdout, e.stderr = nil, nil, nil
}

// discard hands an owned read end to a background drain. The goroutine
// ends when the writing process exits (or is killed), so it cannot
// outlive the run by more than a pipe flush.
func (e *Executor) discard(f *os.File) {
	e.forget(f)
	go func() {
		_, _ = io.Copy(io.Discard, f)
		_ = f.Close()
	}()
}

// own records a pipe end the executor is responsible for closing.
func (e *Executor) own(f *os.File) *os.File {
	e.owned = append(e.owned, f)
	return f
}

// disown closes an owned pipe end and forgets it. Used both when
// handing an end to a child (the child now holds its own copy) and when
// the executor is done reading or writing one.
func (e *Executor) disown(f *os.File) {
	e.forget(f)
	_ = f.Close()
}

// forget removes f from the owned list without closing it.
func (e *Executor) forget(f *os.File) {
	for i, o := range e.owned {
		if o == f {
			e.owned = append(e.owned[:i], e.owned[i+1:]...)
			break
		}
	}
}

func (e *Executor) closeOwned() {
	for _, f := range e.owned {
		_ = f.Close()
	}
	e.owned = nil
}

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
)

func TestExecutorInheritedStreams(t *testing.T) {
	var out, errOut bytes.Buffer
	e := NewExecutor()
	e.SetStdio(strings.NewReader(""), &out, &errOut)

	stages := []*Stage{
		{Command: []string{"echo", "hello"}, Stdin: StdinDevNull},
	}
	if err := e.Start(context.Background(), stages); err != nil {
		t.Fatal(err)
	}
	res, err := e.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "" {
		t.Errorf("inherited stdout should not be captured, got %q", res.Stdout)
	}
	if got := out.String(); got != "hello\n" {
		t.Errorf("expected 'hello\\n' on inherited stdout, got %q", got)
	}
}

func TestExecutorReleasesHandlesAfterRun(t *testing.T) {
	e := NewExecutor()
	stages := []*Stage{
		{Command: []string{"echo", "hi"}, Stdin: StdinDevNull, Stdout: StdoutPipe},
	}
	if err := e.Start(context.Background(), stages); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Collect(); err != nil {
		t.Fatal(err)
	}
	if len(e.owned) != 0 {
		t.Errorf("expected no owned handles after collect, found %d", len(e.owned))
	}
	if len(e.procs) != 0 {
		t.Errorf("expected no process handles after collect, found %d", len(e.procs))
	}
}

func TestSpawnFailureFirstStage(t *testing.T) {
	e := NewExecutor()
	stages := []*Stage{
		{Command: []string{"/nonexistent-gosh-binary"}, Stdin: StdinDevNull, Stdout: StdoutPipe},
	}
	err := e.Start(context.Background(), stages)
	var serr *SpawnError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SpawnError, got %v", err)
	}
	if serr.Stage != 0 {
		t.Errorf("expected failing stage 0, got %d", serr.Stage)
	}
	if len(e.owned) != 0 {
		t.Errorf("expected all handles closed after spawn failure, found %d", len(e.owned))
	}
	if len(e.procs) != 0 {
		t.Errorf("expected no live processes after spawn failure, found %d", len(e.procs))
	}
}

func TestSpawnFailureUnwindsStartedStages(t *testing.T) {
	e := NewExecutor()
	stages := []*Stage{
		{Command: []string{"sleep", "60"}, Stdin: StdinDevNull, Stdout: StdoutPipe},
		{Command: []string{"/nonexistent-gosh-binary"}, Stdin: StdinPrevStdout, Stdout: StdoutPipe},
	}
	err := e.Start(context.Background(), stages)
	var serr *SpawnError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SpawnError, got %v", err)
	}
	if serr.Stage != 1 {
		t.Errorf("expected failing stage 1, got %d", serr.Stage)
	}
	if len(e.owned) != 0 || len(e.procs) != 0 {
		t.Errorf("partially started pipeline left running: %d handles, %d procs",
			len(e.owned), len(e.procs))
	}
}

func TestAbortKillsProcesses(t *testing.T) {
	e := NewExecutor()
	stages := []*Stage{
		{Command: []string{"sleep", "60"}, Stdin: StdinDevNull, Stdout: StdoutDevNull},
	}
	if err := e.Start(context.Background(), stages); err != nil {
		t.Fatal(err)
	}
	pid := e.procs[0].Process.Pid
	e.Abort()

	// The process must be killed and reaped: signal 0 probes existence.
	if err := syscall.Kill(pid, 0); err == nil {
		t.Errorf("process %d still alive after abort", pid)
	}
	if len(e.owned) != 0 {
		t.Errorf("expected no owned handles after abort, found %d", len(e.owned))
	}
}

func TestResetReleasesLeftovers(t *testing.T) {
	e := NewExecutor()
	stages := []*Stage{
		{Command: []string{"sleep", "60"}, Stdin: StdinExternal, Stdout: StdoutPipe},
	}
	if err := e.Start(context.Background(), stages); err != nil {
		t.Fatal(err)
	}
	pid := e.procs[0].Process.Pid

	e.Reset()
	if err := syscall.Kill(pid, 0); err == nil {
		t.Errorf("process %d still alive after reset", pid)
	}
	if len(e.owned) != 0 || e.stdin != nil || e.stdout != nil {
		t.Error("reset left handles behind")
	}
}

func TestUnconsumedPipedStreamIsDrained(t *testing.T) {
	// Stage 1 pipes both streams; stage 2 reads stderr only. The unread
	// stdout pipe must be drained so stage 1 cannot block forever.
	e := NewExecutor()
	stages := []*Stage{
		{Command: []string{"sh", "-c", "echo out; echo err >&2"},
			Stdin: StdinDevNull, Stdout: StdoutPipe, Stderr: StderrPipe},
		{Command: []string{"tr", "a-z", "A-Z"}, Stdin: StdinPrevStderr, Stdout: StdoutPipe},
	}
	if err := e.Start(context.Background(), stages); err != nil {
		t.Fatal(err)
	}
	res, err := e.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "ERR" {
		t.Errorf("expected 'ERR', got %q", res.Stdout)
	}
}

func TestWriteInputWithoutPipe(t *testing.T) {
	e := NewExecutor()
	stages := []*Stage{
		{Command: []string{"echo", "hi"}, Stdin: StdinDevNull, Stdout: StdoutPipe},
	}
	if err := e.Start(context.Background(), stages); err != nil {
		t.Fatal(err)
	}
	if err := e.WriteInput([]byte("data")); !errors.Is(err, ErrStdinNotPiped) {
		t.Errorf("expected ErrStdinNotPiped, got %v", err)
	}
	if _, err := e.Collect(); err != nil {
		t.Fatal(err)
	}
}

func TestReadWithoutCapture(t *testing.T) {
	e := NewExecutor()
	stages := []*Stage{
		{Command: []string{"echo", "hi"}, Stdin: StdinDevNull, Stdout: StdoutDevNull},
	}
	if err := e.Start(context.Background(), stages); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	if _, err := e.ReadStdout(buf); !errors.Is(err, ErrStreamNotCaptured) {
		t.Errorf("expected ErrStreamNotCaptured, got %v", err)
	}
	if _, err := e.ReadStderr(buf); !errors.Is(err, ErrStreamNotCaptured) {
		t.Errorf("expected ErrStreamNotCaptured, got %v", err)
	}
	if _, err := e.Collect(); err != nil {
		t.Fatal(err)
	}
}

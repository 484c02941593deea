package pipeline

import (
	"errors"
	"testing"
)

func TestResolveFirstStageDefaults(t *testing.T) {
	src, err := resolveStdin([]string{"cat"}, nil, StdinDefault, false)
	if err != nil {
		t.Fatal(err)
	}
	if src != StdinInherit {
		t.Errorf("expected inherit, got %v", src)
	}
}

func TestResolveFirstStageWithInput(t *testing.T) {
	src, err := resolveStdin([]string{"cat"}, nil, StdinDefault, true)
	if err != nil {
		t.Fatal(err)
	}
	if src != StdinExternal {
		t.Errorf("expected external, got %v", src)
	}
}

func TestResolveFirstStageInputVsDevNull(t *testing.T) {
	_, err := resolveStdin([]string{"cat"}, nil, StdinDevNull, true)
	var rerr *RoutingError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected routing error, got %v", err)
	}
}

func TestResolveFirstStageCannotReadPrevious(t *testing.T) {
	for _, req := range []StdinSource{StdinPrevStdout, StdinPrevStderr} {
		_, err := resolveStdin([]string{"cat"}, nil, req, false)
		var rerr *RoutingError
		if !errors.As(err, &rerr) {
			t.Errorf("%v: expected routing error, got %v", req, err)
		}
	}
}

func TestResolveDefaultFollowsPipedStdout(t *testing.T) {
	prev := &Stage{Command: []string{"echo", "hi"}, Stdin: StdinInherit, Stdout: StdoutPipe}
	src, err := resolveStdin([]string{"cat"}, prev, StdinDefault, false)
	if err != nil {
		t.Fatal(err)
	}
	if src != StdinPrevStdout {
		t.Errorf("expected prev-stdout, got %v", src)
	}
}

func TestResolveDefaultWithoutPipedStdout(t *testing.T) {
	prev := &Stage{Command: []string{"echo", "hi"}, Stdin: StdinInherit}
	src, err := resolveStdin([]string{"cat"}, prev, StdinDefault, false)
	if err != nil {
		t.Fatal(err)
	}
	if src != StdinInherit {
		t.Errorf("expected inherit, got %v", src)
	}
}

func TestResolveExplicitPrevRequiresPiping(t *testing.T) {
	prev := &Stage{Command: []string{"echo", "hi"}, Stdin: StdinInherit}
	if _, err := resolveStdin([]string{"cat"}, prev, StdinPrevStdout, false); err == nil {
		t.Error("expected error for unpiped previous stdout")
	}
	if _, err := resolveStdin([]string{"cat"}, prev, StdinPrevStderr, false); err == nil {
		t.Error("expected error for unpiped previous stderr")
	}

	prev.Stdout = StdoutPipe
	prev.Stderr = StderrPipe
	if _, err := resolveStdin([]string{"cat"}, prev, StdinPrevStdout, false); err != nil {
		t.Errorf("piped previous stdout should resolve: %v", err)
	}
	if _, err := resolveStdin([]string{"cat"}, prev, StdinPrevStderr, false); err != nil {
		t.Errorf("piped previous stderr should resolve: %v", err)
	}
}

func TestResolveExternalMidPipeline(t *testing.T) {
	prev := &Stage{Command: []string{"echo", "hi"}, Stdin: StdinInherit, Stdout: StdoutPipe}
	_, err := resolveStdin([]string{"cat"}, prev, StdinExternal, false)
	var rerr *RoutingError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected routing error, got %v", err)
	}
}

func TestValidateSpecRejectsMergeCycle(t *testing.T) {
	err := validateSpec([]string{"cat"}, StageSpec{Stdout: StdoutToStderr, Stderr: StderrToStdout})
	var rerr *RoutingError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected routing error, got %v", err)
	}
}

func TestValidateSpecRejectsEmptyCommand(t *testing.T) {
	if err := validateSpec(nil, StageSpec{}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestValidateStages(t *testing.T) {
	tests := []struct {
		name   string
		stages []*Stage
		ok     bool
	}{
		{"empty", nil, false},
		{"single", []*Stage{
			{Command: []string{"echo"}, Stdin: StdinInherit, Stdout: StdoutPipe},
		}, true},
		{"unresolved stdin", []*Stage{
			{Command: []string{"echo"}},
		}, false},
		{"chained", []*Stage{
			{Command: []string{"echo"}, Stdin: StdinInherit, Stdout: StdoutPipe},
			{Command: []string{"cat"}, Stdin: StdinPrevStdout, Stdout: StdoutPipe},
		}, true},
		{"chain without piping", []*Stage{
			{Command: []string{"echo"}, Stdin: StdinInherit},
			{Command: []string{"cat"}, Stdin: StdinPrevStdout, Stdout: StdoutPipe},
		}, false},
		{"external mid-pipeline", []*Stage{
			{Command: []string{"echo"}, Stdin: StdinInherit, Stdout: StdoutPipe},
			{Command: []string{"cat"}, Stdin: StdinExternal, Stdout: StdoutPipe},
		}, false},
		{"last stage merge without capture", []*Stage{
			{Command: []string{"echo"}, Stdin: StdinInherit, Stdout: StdoutToStderr},
		}, false},
		{"last stage merge with piped stderr", []*Stage{
			{Command: []string{"echo"}, Stdin: StdinInherit, Stdout: StdoutToStderr, Stderr: StderrPipe},
		}, true},
	}
	for _, tt := range tests {
		err := validateStages(tt.stages)
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestParseStreamNames(t *testing.T) {
	if d, err := ParseStdoutDest("pipe"); err != nil || d != StdoutPipe {
		t.Errorf("pipe: got %v, %v", d, err)
	}
	if d, err := ParseStderrDest("stdout"); err != nil || d != StderrToStdout {
		t.Errorf("stdout: got %v, %v", d, err)
	}
	if s, err := ParseStdinSource(""); err != nil || s != StdinDefault {
		t.Errorf("empty: got %v, %v", s, err)
	}
	if _, err := ParseStdoutDest("bogus"); err == nil {
		t.Error("expected error for unknown destination")
	}
}

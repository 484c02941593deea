package pipeline

import "fmt"

// StdinSource says where a stage reads its standard input from.
type StdinSource int

const (
	// StdinDefault lets the router choose: the previous stage's piped
	// stdout when there is one, otherwise the caller's own stdin.
	StdinDefault StdinSource = iota

	// StdinInherit reads from the caller's own stdin.
	StdinInherit

	// StdinExternal reads the pipeline's pending input buffer through a
	// dedicated pipe. Legal only on the first stage.
	StdinExternal

	// StdinPrevStdout reads the previous stage's piped stdout.
	StdinPrevStdout

	// StdinPrevStderr reads the previous stage's piped stderr.
	StdinPrevStderr

	// StdinDevNull yields immediate end-of-input.
	StdinDevNull
)

func (s StdinSource) String() string {
	switch s {
	case StdinDefault:
		return "default"
	case StdinInherit:
		return "inherit"
	case StdinExternal:
		return "external"
	case StdinPrevStdout:
		return "prev-stdout"
	case StdinPrevStderr:
		return "prev-stderr"
	case StdinDevNull:
		return "devnull"
	default:
		return fmt.Sprintf("stdin(%d)", int(s))
	}
}

// ParseStdinSource converts a string to a StdinSource.
func ParseStdinSource(s string) (StdinSource, error) {
	switch s {
	case "", "default":
		return StdinDefault, nil
	case "inherit":
		return StdinInherit, nil
	case "external":
		return StdinExternal, nil
	case "prev-stdout":
		return StdinPrevStdout, nil
	case "prev-stderr":
		return StdinPrevStderr, nil
	case "devnull":
		return StdinDevNull, nil
	default:
		return 0, fmt.Errorf("unknown stdin source: %q", s)
	}
}

// StdoutDest says where a stage's standard output goes.
type StdoutDest int

const (
	// StdoutInherit writes to the caller's own stdout.
	StdoutInherit StdoutDest = iota

	// StdoutPipe feeds the next stage, or is captured when the stage is
	// the last one.
	StdoutPipe

	// StdoutToStderr merges stdout into wherever stderr is routed.
	StdoutToStderr

	// StdoutDevNull discards all output.
	StdoutDevNull
)

func (d StdoutDest) String() string {
	switch d {
	case StdoutInherit:
		return "inherit"
	case StdoutPipe:
		return "pipe"
	case StdoutToStderr:
		return "stderr"
	case StdoutDevNull:
		return "devnull"
	default:
		return fmt.Sprintf("stdout(%d)", int(d))
	}
}

// ParseStdoutDest converts a string to a StdoutDest.
func ParseStdoutDest(s string) (StdoutDest, error) {
	switch s {
	case "", "inherit":
		return StdoutInherit, nil
	case "pipe":
		return StdoutPipe, nil
	case "stderr":
		return StdoutToStderr, nil
	case "devnull":
		return StdoutDevNull, nil
	default:
		return 0, fmt.Errorf("unknown stdout destination: %q", s)
	}
}

// StderrDest says where a stage's standard error goes.
type StderrDest int

const (
	// StderrInherit writes to the caller's own stderr.
	StderrInherit StderrDest = iota

	// StderrPipe feeds the next stage, or is captured when the stage is
	// the last one.
	StderrPipe

	// StderrToStdout merges stderr into wherever stdout is routed.
	StderrToStdout

	// StderrDevNull discards all output.
	StderrDevNull
)

func (d StderrDest) String() string {
	switch d {
	case StderrInherit:
		return "inherit"
	case StderrPipe:
		return "pipe"
	case StderrToStdout:
		return "stdout"
	case StderrDevNull:
		return "devnull"
	default:
		return fmt.Sprintf("stderr(%d)", int(d))
	}
}

// ParseStderrDest converts a string to a StderrDest.
func ParseStderrDest(s string) (StderrDest, error) {
	switch s {
	case "", "inherit":
		return StderrInherit, nil
	case "pipe":
		return StderrPipe, nil
	case "stdout":
		return StderrToStdout, nil
	case "devnull":
		return StderrDevNull, nil
	default:
		return 0, fmt.Errorf("unknown stderr destination: %q", s)
	}
}

// StageSpec is a caller's routing request for one stage. The zero value
// asks for default routing everywhere.
type StageSpec struct {
	Stdin  StdinSource
	Stdout StdoutDest
	Stderr StderrDest
	Dir    string   // working directory; empty inherits the caller's
	Env    []string // environment; nil inherits the caller's
}

// Stage is one resolved pipeline stage. Its Stdin is never
// StdinDefault: the router pins the source when the stage is added.
type Stage struct {
	Command []string
	Stdin   StdinSource
	Stdout  StdoutDest
	Stderr  StderrDest
	Dir     string
	Env     []string
}

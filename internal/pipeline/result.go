package pipeline

import "strings"

// Result is the immutable record of one finished pipeline run. ExitCode
// is the last stage's status only, matching shell $? semantics —
// earlier-stage failures are not surfaced as separate values.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string

	// Signal names the signal that terminated the last stage, if any.
	// ExitCode is 128+signum in that case, again following $?.
	Signal string
}

// Success reports whether the last stage exited zero.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Output returns stdout if non-empty, otherwise stderr, otherwise "".
func (r Result) Output() string {
	if r.Stdout != "" {
		return r.Stdout
	}
	return r.Stderr
}

// trimNewline drops a single trailing newline, the way $(...) does.
func trimNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}

package pipeline

import (
	"fmt"
	"os"
)

// Unicode operators used in pipeline syntax.
// These are not shell metacharacters, so they survive unquoted in bash/zsh/fish.
const (
	OpPipe        = "¦" // U+00A6 BROKEN BAR — pipe (stdout → stdin)
	OpRedirectIn  = "‹" // U+2039 SINGLE LEFT-POINTING ANGLE QUOTATION MARK — read first stage's input from file
	OpRedirectOut = "›" // U+203A SINGLE RIGHT-POINTING ANGLE QUOTATION MARK — write captured stdout to file
)

// Parsed is a pipeline description split into argv segments, with
// optional file redirects at either end.
type Parsed struct {
	Segments    [][]string
	RedirectIn  string // file path feeding the first stage's stdin, empty if none
	RedirectOut string // file path receiving the captured stdout, empty if none
}

// Parse reads a pre-tokenized argument list into a pipeline
// description. ¦ separates stages; ‹ <file> and › <file> may appear
// anywhere and name the first stage's stdin and the captured stdout.
func Parse(args []string) (*Parsed, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty pipeline")
	}

	p := &Parsed{}
	var current []string
	for i := 0; i < len(args); i++ {
		switch op := args[i]; op {
		case OpPipe:
			if len(current) == 0 {
				return nil, fmt.Errorf("empty segment before %s", OpPipe)
			}
			p.Segments = append(p.Segments, current)
			current = nil
		case OpRedirectIn, OpRedirectOut:
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a file path", op)
			}
			i++
			target := &p.RedirectIn
			if op == OpRedirectOut {
				target = &p.RedirectOut
			}
			if *target != "" {
				return nil, fmt.Errorf("multiple %s redirects", op)
			}
			*target = args[i]
		default:
			current = append(current, op)
		}
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("empty segment after %s", OpPipe)
	}
	p.Segments = append(p.Segments, current)

	return p, nil
}

// Apply loads the parsed pipeline into sh: every segment but the last
// is piped to its successor, and an ‹ redirect becomes the pipeline's
// input buffer. The › redirect is the caller's to honor after the run,
// since it applies to the captured result.
func (p *Parsed) Apply(sh *Shell) error {
	if p.RedirectIn != "" {
		data, err := os.ReadFile(p.RedirectIn)
		if err != nil {
			return fmt.Errorf("redirect %s: %w", OpRedirectIn, err)
		}
		if err := sh.SetInput(string(data)); err != nil {
			return err
		}
	}
	for i, seg := range p.Segments {
		spec := StageSpec{}
		if i < len(p.Segments)-1 {
			spec.Stdout = StdoutPipe
		}
		if err := sh.AddArgv(seg, spec); err != nil {
			return err
		}
	}
	return nil
}

// Describe renders the parsed pipeline back into a single line, for
// audit entries and error messages.
func (p *Parsed) Describe() string {
	var out string
	for i, seg := range p.Segments {
		if i > 0 {
			out += " " + OpPipe + " "
		}
		for j, arg := range seg {
			if j > 0 {
				out += " "
			}
			out += arg
		}
	}
	return out
}

// Argv0s returns the leading token of each segment, for audit entries.
func (p *Parsed) Argv0s() []string {
	names := make([]string, len(p.Segments))
	for i, seg := range p.Segments {
		names[i] = seg[0]
	}
	return names
}

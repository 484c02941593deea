package pipeline

// resolveStdin finalizes the stdin source for a stage being appended
// after prev (nil for the first stage). hasInput reports whether the
// shell holds a pending input buffer. Every failure here is a
// construction error: nothing is left to be discovered at spawn time.
func resolveStdin(command []string, prev *Stage, requested StdinSource, hasInput bool) (StdinSource, error) {
	if prev == nil {
		if hasInput {
			// A pending input buffer claims the first stage's stdin.
			switch requested {
			case StdinDefault, StdinInherit, StdinExternal:
				return StdinExternal, nil
			default:
				return 0, &RoutingError{Command: command,
					Reason: "pending input requires the first stage to read external input, not " + requested.String()}
			}
		}
		switch requested {
		case StdinDefault, StdinInherit:
			return StdinInherit, nil
		case StdinExternal:
			return StdinExternal, nil
		case StdinDevNull:
			return StdinDevNull, nil
		case StdinPrevStdout, StdinPrevStderr:
			// A process cannot read its own unread standard streams, and
			// there is no stage before the first one.
			return 0, &RoutingError{Command: command,
				Reason: "the first stage has no previous stage to read from"}
		}
		return 0, &RoutingError{Command: command, Reason: "unknown stdin source " + requested.String()}
	}

	switch requested {
	case StdinExternal:
		return 0, &RoutingError{Command: command,
			Reason: "external input cannot feed a mid-pipeline stage"}
	case StdinPrevStdout:
		if prev.Stdout != StdoutPipe {
			return 0, &RoutingError{Command: command,
				Reason: "previous stage's stdout is not piped"}
		}
		return StdinPrevStdout, nil
	case StdinPrevStderr:
		if prev.Stderr != StderrPipe {
			return 0, &RoutingError{Command: command,
				Reason: "previous stage's stderr is not piped"}
		}
		return StdinPrevStderr, nil
	case StdinInherit:
		return StdinInherit, nil
	case StdinDevNull:
		return StdinDevNull, nil
	case StdinDefault:
		if prev.Stdout == StdoutPipe {
			return StdinPrevStdout, nil
		}
		return StdinInherit, nil
	}
	return 0, &RoutingError{Command: command, Reason: "unknown stdin source " + requested.String()}
}

// validateSpec rejects routing combinations that can never be legal,
// regardless of the stage's position in the pipeline.
func validateSpec(command []string, spec StageSpec) error {
	if len(command) == 0 {
		return &RoutingError{Reason: "empty command"}
	}
	if spec.Stdout == StdoutToStderr && spec.Stderr == StderrToStdout {
		return &RoutingError{Command: command,
			Reason: "stdout and stderr cannot merge into each other"}
	}
	return nil
}

// validateStages is the executor's pre-spawn check over a finished
// stage list. The builder already enforces these; a stage list built by
// hand goes through the same gate.
func validateStages(stages []*Stage) error {
	if len(stages) == 0 {
		return ErrEmptyPipeline
	}
	for i, st := range stages {
		if len(st.Command) == 0 {
			return &RoutingError{Reason: "empty command"}
		}
		if st.Stdin == StdinDefault {
			return &RoutingError{Command: st.Command, Reason: "stdin source was never resolved"}
		}
		if st.Stdout == StdoutToStderr && st.Stderr == StderrToStdout {
			return &RoutingError{Command: st.Command,
				Reason: "stdout and stderr cannot merge into each other"}
		}
		if i == 0 && (st.Stdin == StdinPrevStdout || st.Stdin == StdinPrevStderr) {
			return &RoutingError{Command: st.Command,
				Reason: "the first stage has no previous stage to read from"}
		}
		if i > 0 && st.Stdin == StdinExternal {
			return &RoutingError{Command: st.Command,
				Reason: "external input cannot feed a mid-pipeline stage"}
		}
		if i > 0 && st.Stdin == StdinPrevStdout && stages[i-1].Stdout != StdoutPipe {
			return &RoutingError{Command: st.Command,
				Reason: "previous stage's stdout is not piped"}
		}
		if i > 0 && st.Stdin == StdinPrevStderr && stages[i-1].Stderr != StderrPipe {
			return &RoutingError{Command: st.Command,
				Reason: "previous stage's stderr is not piped"}
		}
	}
	last := stages[len(stages)-1]
	if last.Stdout == StdoutToStderr && last.Stderr != StderrPipe {
		return &RoutingError{Command: last.Command,
			Reason: "last stage's stdout merges into stderr, which is not captured"}
	}
	return nil
}

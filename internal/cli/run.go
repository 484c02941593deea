package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/shlex"

	"github.com/marcelocantos/gosh/internal/audit"
	"github.com/marcelocantos/gosh/internal/config"
	"github.com/marcelocantos/gosh/internal/pipeline"
)

// RunPipe executes a pre-tokenized pipeline: gosh --pipe <args...>
// The last stage's stdout is captured and echoed (or written to the ›
// redirect target); stderr flows through untouched.
func RunPipe(ctx context.Context, cfg *config.Config, logger *audit.Logger, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "gosh pipe: empty pipeline")
		return 1
	}

	parsed, err := pipeline.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "gosh pipe: %v\n", err)
		return 1
	}

	sh := pipeline.New(nil)
	sh.SetDefaults(cfg.Defaults.Dir, cfg.Defaults.EnvSlice())
	if err := parsed.Apply(sh); err != nil {
		fmt.Fprintf(stderr, "gosh pipe: %v\n", err)
		return 1
	}

	start := time.Now()
	res, err := sh.Run(ctx)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(stderr, "gosh: %v\n", err)
		logAudit(logger, parsed.Describe(), parsed.Argv0s(), pipeline.Result{ExitCode: 2}, err, duration)
		return 2
	}

	logAudit(logger, parsed.Describe(), parsed.Argv0s(), res, nil, duration)

	if err := emitStdout(parsed.RedirectOut, res.Stdout, stdout); err != nil {
		fmt.Fprintf(stderr, "gosh: %v\n", err)
		return 2
	}
	return res.ExitCode
}

// RunEval tokenizes a single pipeline string and runs it: gosh --eval '<expr>'.
func RunEval(ctx context.Context, cfg *config.Config, logger *audit.Logger, expr string, stdout, stderr io.Writer) int {
	tokens, err := shlex.Split(expr)
	if err != nil {
		fmt.Fprintf(stderr, "gosh eval: %v\n", err)
		return 1
	}
	return RunPipe(ctx, cfg, logger, tokens, stdout, stderr)
}

// emitStdout delivers the captured stdout: to the › redirect target when
// one was given, to w otherwise. The capture step trims the final
// newline, so a non-empty capture gets it back.
func emitStdout(redirect, captured string, w io.Writer) error {
	if captured != "" {
		captured += "\n"
	}
	if redirect != "" {
		if err := os.WriteFile(redirect, []byte(captured), 0644); err != nil {
			return fmt.Errorf("redirect %s: %w", pipeline.OpRedirectOut, err)
		}
		return nil
	}
	_, err := io.WriteString(w, captured)
	return err
}

func logAudit(logger *audit.Logger, pipelineStr string, stages []string, res pipeline.Result, runErr error, duration time.Duration) {
	if logger == nil {
		return
	}
	cwd, _ := os.Getwd()
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	// Best-effort audit logging — don't fail the command if audit fails.
	_ = logger.Log(audit.Run{
		Pipeline: pipelineStr,
		Stages:   stages,
		ExitCode: res.ExitCode,
		Signal:   res.Signal,
		Error:    errMsg,
		Duration: duration,
		Cwd:      cwd,
	})
}

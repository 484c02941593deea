package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/marcelocantos/gosh/internal/audit"
	"github.com/marcelocantos/gosh/internal/config"
	"github.com/marcelocantos/gosh/internal/pipeline"
	"github.com/marcelocantos/gosh/internal/script"
)

// RunScript executes a Starlark pipeline script: gosh --script file.star [args...]
// args is the script's argv, with the script path at index 0. The
// process exit code is the script's last pipeline exit code.
func RunScript(ctx context.Context, cfg *config.Config, logger *audit.Logger, path string, args []string, stderr io.Writer) int {
	sh := pipeline.New(args)
	sh.SetDefaults(cfg.Defaults.Dir, cfg.Defaults.EnvSlice())
	en := script.NewEngine(ctx, sh)

	start := time.Now()
	_, err := en.RunFile(path)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(stderr, "gosh script: %v\n", err)
		logAudit(logger, "script:"+path, args, pipeline.Result{ExitCode: 2}, err, duration)
		return 2
	}

	// Flush any stages the script described but never ran.
	res, err := sh.Result()
	if err != nil {
		fmt.Fprintf(stderr, "gosh script: %v\n", err)
		logAudit(logger, "script:"+path, args, pipeline.Result{ExitCode: 2}, err, duration)
		return 2
	}

	logAudit(logger, "script:"+path, args, res, nil, duration)
	return res.ExitCode
}

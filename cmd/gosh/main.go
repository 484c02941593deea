package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/marcelocantos/gosh/internal/audit"
	"github.com/marcelocantos/gosh/internal/cli"
	"github.com/marcelocantos/gosh/internal/config"
	"github.com/marcelocantos/gosh/internal/mcpserver"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		cli.RunHelp(os.Stderr)
		return 1
	}

	// Load config.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gosh: config: %v\n", err)
		return 1
	}

	// Set up audit logger.
	logger, err := audit.NewLogger(cfg.Audit.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gosh: audit: %v\n", err)
		// Continue without audit logging.
		logger = nil
	}

	// Set up context with cancellation on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch os.Args[1] {
	case "--pipe":
		return cli.RunPipe(ctx, cfg, logger, os.Args[2:], os.Stdout, os.Stderr)
	case "--eval":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "gosh eval: missing pipeline string")
			return 1
		}
		return cli.RunEval(ctx, cfg, logger, strings.Join(os.Args[2:], " "), os.Stdout, os.Stderr)
	case "--script":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "gosh script: missing script path")
			return 1
		}
		return cli.RunScript(ctx, cfg, logger, os.Args[2], os.Args[2:], os.Stderr)
	case "--mcp":
		if err := mcpserver.New(cfg, logger, version).ServeStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "gosh mcp: %v\n", err)
			return 1
		}
		return 0
	case "--audit":
		return cli.RunAudit(os.Stdout, cfg.Audit.Path, os.Args[2:])
	case "--help":
		return cli.RunHelp(os.Stdout)
	case "--version":
		fmt.Printf("gosh %s\n", version)
		return 0
	default:
		// Everything else is a pipeline.
		return cli.RunPipe(ctx, cfg, logger, os.Args[1:], os.Stdout, os.Stderr)
	}
}

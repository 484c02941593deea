// Package mcpserver exposes pipeline execution as an MCP tool over
// stdio, so agent hosts can run pipelines without shell access.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/shlex"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/gosh/internal/audit"
	"github.com/marcelocantos/gosh/internal/config"
	"github.com/marcelocantos/gosh/internal/pipeline"
)

// Server serves the run_pipeline tool.
type Server struct {
	cfg    *config.Config
	logger *audit.Logger
	mcp    *server.MCPServer
}

// New builds the MCP server and registers its tools.
func New(cfg *config.Config, logger *audit.Logger, version string) *Server {
	s := &Server{cfg: cfg, logger: logger}

	m := server.NewMCPServer(cfg.MCP.ServerName, version,
		server.WithToolCapabilities(false),
	)
	m.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run an OS command pipeline. Stages are separated by "+
			pipeline.OpPipe+"; each stage's stdout feeds the next stage's stdin. "+
			"Returns the last stage's stdout."),
		mcp.WithString("pipeline",
			mcp.Required(),
			mcp.Description("The pipeline, e.g. `cat notes.txt "+pipeline.OpPipe+" sort "+pipeline.OpPipe+" uniq -c`."),
		),
		mcp.WithString("input",
			mcp.Description("Data written to the first stage's stdin."),
		),
	), s.handleRunPipeline)

	s.mcp = m
	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleRunPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pipelineStr, err := req.RequireString("pipeline")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	input := req.GetString("input", "")

	tokens, err := shlex.Split(pipelineStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("tokenize: %v", err)), nil
	}
	parsed, err := pipeline.Parse(tokens)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sh := pipeline.New(nil)
	sh.SetDefaults(s.cfg.Defaults.Dir, s.cfg.Defaults.EnvSlice())
	// Stdin belongs to the protocol; stages always get an explicit input
	// buffer, even an empty one.
	if err := sh.SetInput(input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := parsed.Apply(sh); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	start := time.Now()
	res, err := sh.Run(ctx)
	duration := time.Since(start)

	s.logRun(parsed, res, err, duration)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Success() {
		return mcp.NewToolResultError(fmt.Sprintf("exit %d: %s", res.ExitCode, res.Output())), nil
	}
	return mcp.NewToolResultText(res.Stdout), nil
}

func (s *Server) logRun(parsed *pipeline.Parsed, res pipeline.Result, runErr error, duration time.Duration) {
	if s.logger == nil {
		return
	}
	cwd, _ := os.Getwd()
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	_ = s.logger.Log(audit.Run{
		Pipeline: parsed.Describe(),
		Stages:   parsed.Argv0s(),
		ExitCode: res.ExitCode,
		Signal:   res.Signal,
		Error:    errMsg,
		Duration: duration,
		Cwd:      cwd,
	})
}

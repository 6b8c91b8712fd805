package main

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/depscan/internal/mcpserver"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run a Model Context Protocol server on stdio",
		Long: `MCP serves depscan as Model Context Protocol tools over stdin/stdout:

  depscan_analyze   scan the requirements of a GitHub repository
  depscan_check     check a single package

Example client configuration:
  {
    "mcpServers": {
      "depscan": {"command": "depscan", "args": ["mcp"]}
    }
  }`,
		Args: cobra.NoArgs,
		RunE: runMCPCmd,
	}

	addCheckFlags(cmd)

	return cmd
}

func runMCPCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// stdout carries the protocol, so logs go to stderr only.
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return mcpserver.Run(ctx, a.service(), getVersion())
}

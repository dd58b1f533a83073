package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nvandessel/causalsim/internal/logging"
	"github.com/nvandessel/causalsim/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the simulator to agents over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  causalsim_designs  list the built-in designs and presets
  causalsim_run      simulate one design and return its summary rows

Workers, redraw budget and inference settings come from the configuration.
Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			events, err := logging.OpenEventLogger(cfg.Logging.TraceFile, cfg.Logging.Level, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "causalsim",
				Version:  version,
				Base:     cfg,
				Logger:   logger,
				Events:   events,
				Registry: prometheus.NewRegistry(),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			logger.Info("mcp server starting", "run_id", events.RunID())
			return server.Run(cmd.Context())
		},
	}
}

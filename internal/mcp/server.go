// Package mcp provides an MCP (Model Context Protocol) server for causalsim.
package mcp

import (
	"context"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nvandessel/causalsim/internal/config"
	"github.com/nvandessel/causalsim/internal/logging"
	"github.com/nvandessel/causalsim/internal/ratelimit"
	"github.com/nvandessel/causalsim/internal/simulation"
)

// Server wraps the MCP SDK server and runs simulations in-process.
type Server struct {
	server       *sdk.Server
	base         *config.Config
	logger       *slog.Logger
	events       *logging.EventLogger
	metrics      *simulation.Metrics
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "causalsim")
	Version string // Server version

	// Base supplies workers, redraw budget, and inference settings for
	// every run. Nil uses config.Default().
	Base *config.Config

	Logger *slog.Logger
	// Events receives one tool_call event per invocation, plus the
	// replication events of every run.
	Events *logging.EventLogger
	// Registry, when set, receives the simulation metrics.
	Registry prometheus.Registerer
}

// NewServer creates a new MCP server with causalsim tools.
func NewServer(cfg *Config) (*Server, error) {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{})

	base := cfg.Base
	if base == nil {
		base = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		server:       mcpServer,
		base:         base,
		logger:       logger,
		events:       cfg.Events,
		toolLimiters: ratelimit.NewToolLimiters(),
	}
	if cfg.Registry != nil {
		s.metrics = simulation.NewMetrics(cfg.Registry)
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves one session over an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.events.Close()
}

package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nvandessel/causalsim/internal/config"
	"github.com/nvandessel/causalsim/internal/experiment"
	"github.com/nvandessel/causalsim/internal/logging"
	"github.com/nvandessel/causalsim/internal/output"
	"github.com/nvandessel/causalsim/internal/simulation"
)

// loadConfig resolves defaults, the suite file, environment overrides and
// global flags, in that order. It does not validate.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := config.ApplyEnvOverrides(cfg); err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("trace") {
		cfg.Logging.TraceFile, _ = cmd.Flags().GetString("trace")
	}
	return cfg, nil
}

// outputOptions reads --format, --json and --precision. An explicit
// --format wins over --json.
func outputOptions(cmd *cobra.Command) (output.Options, error) {
	format, _ := cmd.Flags().GetString("format")
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut && !cmd.Flags().Changed("format") {
		format = string(output.FormatJSON)
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return output.Options{}, err
	}
	prec, _ := cmd.Flags().GetInt("precision")
	return output.Options{Format: f, Precision: prec}, nil
}

// simulate validates cfg, runs specs, and writes the report to the
// command's stdout.
func simulate(cmd *cobra.Command, cfg *config.Config, specs []experiment.Spec) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := outputOptions(cmd)
	if err != nil {
		return err
	}
	set, err := cfg.Settings()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	events, err := logging.OpenEventLogger(cfg.Logging.TraceFile, cfg.Logging.Level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer events.Close()

	reg := prometheus.NewRegistry()
	logger.Debug("run started", "run_id", events.RunID(), "scenarios", len(specs), "workers", cfg.Workers)

	outcomes, err := experiment.RunAll(cmd.Context(), simulation.Options{
		Workers: cfg.Workers,
		Logger:  logger,
		Events:  events,
		Metrics: simulation.NewMetrics(reg),
	}, specs, set)
	if err != nil {
		return err
	}

	if showMetrics, _ := cmd.Flags().GetBool("metrics"); showMetrics {
		if err := logMetrics(logger, reg); err != nil {
			return err
		}
	}
	return output.Write(cmd.OutOrStdout(), outcomes, opts)
}

func logMetrics(logger *slog.Logger, reg prometheus.Gatherer) error {
	snap, err := simulation.Snapshot(reg)
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, snap[k])
	}
	logger.Info("metrics", args...)
	return nil
}

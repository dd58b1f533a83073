package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "causalsim",
		Short: "Monte Carlo evaluation of causal-effect estimators",
		Long: `causalsim draws synthetic datasets from known data-generating processes,
applies competing causal estimators to each draw, and reports their bias,
variance, MSE and confidence-interval coverage over many replications.

Built-in designs:
  psm  propensity-score nearest-neighbour matching (ATT)
  iv   OLS vs two-stage least squares with a binary instrument (LATE)
  did  basic and fixed-effects difference-in-differences (ATT)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (shorthand for --format json)")
	rootCmd.PersistentFlags().String("config", "", "Scenario suite file (default ~/.causalsim/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")
	rootCmd.PersistentFlags().String("format", "table", "Output format: table, json, csv or arrow")
	rootCmd.PersistentFlags().Int("precision", 0, "Decimals in table and csv output (default 4)")
	rootCmd.PersistentFlags().Int("workers", 0, "Concurrent replications (default GOMAXPROCS)")
	rootCmd.PersistentFlags().Bool("metrics", false, "Log replication and redraw counters when the run ends")
	rootCmd.PersistentFlags().String("trace", "", "Append JSONL replication events to this file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newDesignCmd(designPSM),
		newDesignCmd(designIV),
		newDesignCmd(designDiD),
		newDesignsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every scenario of the configured suite",
		Long: `Run every scenario of the suite and print one row per scenario and
estimator.

The suite comes from --config, else ~/.causalsim/config.yaml, else the
built-in studies (psm, iv and did with their preset parameters).

Examples:
  causalsim run                          # Built-in studies
  causalsim run --config suite.yaml      # Custom suite
  causalsim run --format csv > out.csv   # CSV report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if only, _ := cmd.Flags().GetStringSlice("design"); len(only) > 0 {
				kept := cfg.Scenarios[:0]
				for _, s := range cfg.Scenarios {
					for _, d := range only {
						if s.Design == d {
							kept = append(kept, s)
							break
						}
					}
				}
				cfg.Scenarios = kept
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			specs, err := cfg.Expand()
			if err != nil {
				return err
			}
			return simulate(cmd, cfg, specs)
		},
	}

	cmd.Flags().StringSlice("design", nil, "Only run suite entries of these designs")
	return cmd
}

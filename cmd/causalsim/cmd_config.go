package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect causalsim configuration",
		Long: `Show and check the effective configuration.

The suite is read from --config, else ~/.causalsim/config.yaml, else the
built-in defaults. CAUSALSIM_WORKERS, CAUSALSIM_SEED, CAUSALSIM_REPLICATIONS,
CAUSALSIM_LOG_LEVEL and CAUSALSIM_CRITICAL_VALUE override the file.

Examples:
  causalsim config show                        # Effective settings as YAML
  causalsim config show > suite.yaml           # Start a custom suite
  causalsim config validate --config suite.yaml`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigValidateCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			return enc.Close()
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and list the scenarios it expands to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			specs, err := cfg.Expand()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"valid":     true,
					"scenarios": specs,
				})
			}
			fmt.Fprintf(out, "Configuration valid: %d scenarios\n", len(specs))
			for _, s := range specs {
				fmt.Fprintf(out, "  %-28s N=%-6d R=%-6d seed=%d  %s\n", s.Name, s.N, s.Replications, s.Seed, s.Label)
			}
			return nil
		},
	}
}

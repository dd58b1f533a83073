package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/causalsim/internal/experiment"
)

func newDesignsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "designs",
		Short: "List the built-in designs and their presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			designs := experiment.Designs()
			out := cmd.OutOrStdout()

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"designs": designs,
					"count":   len(designs),
				})
			}

			for i, d := range designs {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s  %s\n", d.Name, d.Description)
				fmt.Fprintf(out, "  truth:        %s = %g\n", d.Parameter, d.Truth)
				fmt.Fprintf(out, "  estimators:   %s\n", strings.Join(d.Estimators, ", "))
				fmt.Fprintf(out, "  sample sizes: %v\n", d.SampleSizes)
				fmt.Fprintf(out, "  replications: %d\n", d.Replications)
				fmt.Fprintf(out, "  seed:         %d\n", d.Seed)
				for _, g := range d.Strengths {
					fmt.Fprintf(out, "  strength:     %s\n", experiment.StrengthLabel(g))
				}
			}
			return nil
		},
	}
}

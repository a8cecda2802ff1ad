package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultSweepRuns = 100

func newSweepCmd(f *simFlags) *cobra.Command {
	var runs int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a Monte Carlo sweep of the scenario",
		Long:  "Simulates the hiring plan --runs times with independent seeds and prints the mean, spread and range of every score.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := f.load(cmd)
			if err != nil {
				return err
			}
			summary, err := sc.svc.Sweep(contextOf(cmd), sc.roster, sc.params, runs, sc.seed)
			if err != nil {
				return fmt.Errorf("failed to sweep scenario: %w", err)
			}
			return f.writeJSON(cmd, summary)
		},
	}
	cmd.Flags().IntVarP(&runs, "runs", "n", defaultSweepRuns, "Number of replicates")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScoreCmd(f *simFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Score the roster plus one simulated cohort",
		Long:  "Simulates the hiring plan once, then prints the result, the roster-only baseline and the age histogram.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := f.load(cmd)
			if err != nil {
				return err
			}
			out, err := sc.svc.Score(contextOf(cmd), sc.roster, sc.params, sc.seed)
			if err != nil {
				return fmt.Errorf("failed to score scenario: %w", err)
			}
			return f.writeJSON(cmd, out)
		},
	}
}

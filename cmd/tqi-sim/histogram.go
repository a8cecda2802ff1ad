package main

import (
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/tqi/internal/app"
)

func newHistogramCmd(f *simFlags) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Print the age histogram of the roster plus one simulated cohort",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var extra []app.Option
			if cmd.Flags().Changed("width") {
				if width <= 0 {
					return fmt.Errorf("--width must be positive, got %d", width)
				}
				extra = append(extra, app.WithHistogramWidth(width))
			}
			sc, err := f.load(cmd, extra...)
			if err != nil {
				return err
			}
			out, err := sc.svc.Score(contextOf(cmd), sc.roster, sc.params, sc.seed)
			if err != nil {
				return fmt.Errorf("failed to simulate scenario: %w", err)
			}
			return f.writeJSON(cmd, out.Histogram)
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 0, "Bucket width in years (default from config)")
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/couchcryptid/island-resilience-service/internal/app"
	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/spf13/cobra"
)

func newSimulateCmd(c *cli) *cobra.Command {
	var severity int

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Rescore every region under a cyclone of the given severity",
		Long: `Raise every region's exposure by severity times the impact factor, rescore,
and print the result next to the baseline together with the citizen report
counts of each region.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(c.cfg, nil, c.logger, c.metrics)
			if err != nil {
				return err
			}
			defer a.Close()

			eval, err := a.Evaluator.Evaluate(cmd.Context(), severity)
			if err != nil {
				return err
			}

			baseline := make(map[string]float64, len(a.Baseline))
			for _, r := range a.Baseline {
				baseline[r.RegionID] = r.ResilienceIndex
			}
			rows := make([][]string, len(eval.Regions))
			for i, r := range eval.Regions {
				rows[i] = []string{
					r.RegionID, r.RegionName,
					formatScore(baseline[r.RegionID]), formatScore(r.ResilienceIndex),
					formatScore(r.ResilienceIndex - baseline[r.RegionID]),
					string(r.Category), strconv.Itoa(r.Reports.DangerCount), strconv.Itoa(r.Reports.SafeCount),
				}
			}
			headers := []string{"region", "name", "baseline", "index", "delta", "category", "danger", "safe"}

			out := cmd.OutOrStdout()
			if c.table() {
				fmt.Fprintf(out, "Severity %d: %s\n\n", eval.Severity, eval.SeverityLabel)
			}
			if err := printOutput(out, c.outputFlag, eval, headers, rows); err != nil {
				return err
			}
			if c.table() {
				s := domain.Summarize(eval.Scores())
				fmt.Fprintf(out, "\n%d of %d regions at risk, %d critical, %d people affected\n",
					s.AtRiskRegions, s.TotalRegions, s.CriticalRegions, s.PopulationAtRisk)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&severity, "severity", 50, "Disaster severity, 0 to 100")

	return cmd
}

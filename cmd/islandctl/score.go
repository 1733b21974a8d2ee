package main

import (
	"fmt"
	"strconv"

	"github.com/couchcryptid/island-resilience-service/internal/app"
	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/pipeline"
	"github.com/spf13/cobra"
)

func newScoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Score every region at baseline",
		Long:  "Merge the geometry layer with the factor table and print each region's resilience index and category.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := app.NewScoring(c.cfg)
			if err != nil {
				return err
			}
			geometry, scores, err := app.LoadSources(c.cfg)
			if err != nil {
				return err
			}
			baseline, _, err := pipeline.BuildBaseline(engine, domain.NewAssembler(c.logger), geometry, scores, c.metrics)
			if err != nil {
				return err
			}

			rows := make([][]string, len(baseline))
			for i, r := range baseline {
				rows[i] = []string{
					r.RegionID, r.RegionName,
					formatScore(r.Exposure), formatScore(r.Vulnerability), formatScore(r.Adaptation),
					formatScore(r.ResilienceIndex), string(r.Category), strconv.Itoa(r.Population),
				}
			}
			headers := []string{"region", "name", "exposure", "vulnerability", "adaptation", "index", "category", "population"}
			if err := printOutput(cmd.OutOrStdout(), c.outputFlag, baseline, headers, rows); err != nil {
				return err
			}
			if c.table() {
				s := domain.Summarize(baseline)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d regions, average %.2f, %d at risk\n", s.TotalRegions, s.AvgResilience, s.AtRiskRegions)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"strconv"

	"github.com/couchcryptid/island-resilience-service/internal/app"
	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/spf13/cobra"
)

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the geometry layer and the factor table merge cleanly",
		Long: `Load both sources, merge them and print what the merge kept and dropped.
Exits non-zero when the merge yields no region or any row was dropped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			geometry, scores, err := app.LoadSources(c.cfg)
			if err != nil {
				return err
			}
			_, report, mergeErr := domain.NewAssembler(c.logger).Merge(geometry, scores)

			rows := [][]string{
				{"strategy", string(report.Strategy)},
				{"geometry_rows", strconv.Itoa(report.GeometryRows)},
				{"score_rows", strconv.Itoa(report.ScoreRows)},
				{"merged", strconv.Itoa(report.Merged)},
				{"dropped_invalid_scores", strconv.Itoa(report.DroppedInvalidScores)},
				{"dropped_missing_geometry", strconv.Itoa(report.DroppedMissingGeometry)},
				{"dropped_duplicates", strconv.Itoa(report.DroppedDuplicates)},
				{"dropped_geometry_only", strconv.Itoa(report.DroppedGeometryOnly)},
				{"dropped_scores_only", strconv.Itoa(report.DroppedScoresOnly)},
				{"truncated", strconv.Itoa(report.Truncated)},
			}
			if err := printOutput(cmd.OutOrStdout(), c.outputFlag, report, []string{"check", "value"}, rows); err != nil {
				return err
			}
			if mergeErr != nil {
				return mergeErr
			}
			if dropped := report.GeometryRows + report.ScoreRows - 2*report.Merged; dropped > 0 {
				return fmt.Errorf("%d source rows were not merged", dropped)
			}
			return nil
		},
	}
}

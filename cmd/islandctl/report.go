package main

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/app"
	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/reports"
	"github.com/spf13/cobra"
)

func newReportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Manage the citizen report log",
		Long:  "Add, summarize and prune citizen danger/safe reports in the configured report store.",
	}

	cmd.AddCommand(newReportAddCmd(c))
	cmd.AddCommand(newReportStatsCmd(c))
	cmd.AddCommand(newReportPruneCmd(c))

	return cmd
}

// openStore opens only the report log; report commands never need the sources.
func (c *cli) openStore() (*reports.Store, func() error, error) {
	reportLog, closeLog, err := app.OpenReportLog(c.cfg)
	if err != nil {
		return nil, nil, err
	}
	return reports.NewStore(reportLog, nil, c.logger, c.metrics), closeLog, nil
}

func newReportAddCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "add REGION_ID danger|safe",
		Short: "Record a citizen report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			r, err := store.Append(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			row := []string{r.ID, r.RegionID, string(r.Kind), r.CreatedAt.Format(time.RFC3339)}
			return printOutput(cmd.OutOrStdout(), c.outputFlag, r, []string{"id", "region", "type", "timestamp"}, [][]string{row})
		},
	}
}

func newReportStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [REGION_ID...]",
		Short: "Summarize reports per region",
		Long:  "Print danger and safe counts per region. Without arguments, every region present in the log is listed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			var ids []string
			if len(args) > 0 {
				ids = args
			}
			aggregates, err := store.AggregateAll(cmd.Context(), ids)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(aggregates))
			for id := range aggregates {
				keys = append(keys, id)
			}
			slices.Sort(keys)

			rows := make([][]string, len(keys))
			for i, id := range keys {
				a := aggregates[id]
				rows[i] = []string{id, strconv.Itoa(a.DangerCount), strconv.Itoa(a.SafeCount), strconv.Itoa(a.TotalCount), formatScore(a.DangerRatio)}
			}
			return printOutput(cmd.OutOrStdout(), c.outputFlag, aggregates, []string{"region", "danger", "safe", "total", "danger_ratio"}, rows)
		},
	}
}

func newReportPruneCmd(c *cli) *cobra.Command {
	var maxAge string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete reports older than a maximum age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			age := c.cfg.ReportMaxAge
			if maxAge != "" {
				d, err := domain.ParseMaxAge(maxAge)
				if err != nil {
					return err
				}
				age = d
			}

			store, closeStore, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			removed, err := store.Prune(cmd.Context(), age)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d reports older than %s\n", removed, age)
			return nil
		},
	}

	cmd.Flags().StringVar(&maxAge, "max-age", "", "Maximum report age, as a duration (36h) or hours (24); defaults to REPORT_MAX_AGE")

	return cmd
}

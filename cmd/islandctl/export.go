package main

import (
	"fmt"
	"os"

	"github.com/couchcryptid/island-resilience-service/internal/app"
	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/spf13/cobra"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		severity int
		file     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the rescue report for a cyclone severity as CSV",
		Long: `Write one CSV row per region with its resilience index, category, citizen
danger/safe counts, danger percentage and the three scoring factors under a
cyclone of the given severity.

With --file the report is written to that path; a value of "-" or no flag
writes to standard output.`,
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

			if file == "" || file == "-" {
				return printCSV(cmd.OutOrStdout(), domain.RescueReportHeader, eval.RescueReportRows())
			}
			f, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("create %s: %w", file, err)
			}
			if err := printCSV(f, domain.RescueReportHeader, eval.RescueReportRows()); err != nil {
				_ = f.Close()
				return fmt.Errorf("write %s: %w", file, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d regions to %s\n", len(eval.Regions), file)
			return nil
		},
	}

	cmd.Flags().IntVar(&severity, "severity", 50, "Disaster severity, 0 to 100")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Output path (default stdout, e.g. "+domain.RescueReportFilename(50)+")")

	return cmd
}

// Command islandctl scores the island's regions, runs disaster scenarios and
// manages the citizen report log from the command line. It reads the same
// environment configuration as the service.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/island-resilience-service/internal/config"
	"github.com/couchcryptid/island-resilience-service/internal/observability"
	"github.com/spf13/cobra"
)

var version = "dev"

// cli carries the state shared by every subcommand.
type cli struct {
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *observability.Metrics
	outputFlag   string
	scoresFile   string
	geometryFile string
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "islandctl",
		Short: "Climate resilience scoring for the regions of Mauritius",
		Long: `islandctl scores every region from the geometry layer and the factor table,
simulates cyclones of a given severity and manages citizen danger/safe reports.

Configuration is read from the environment (SCORES_FILE, GEOMETRY_FILE,
REPORT_STORE, ...), the same way the resilience-api service reads it.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.scoresFile != "" {
				cfg.ScoresFile = c.scoresFile
			}
			if c.geometryFile != "" {
				cfg.GeometryFile = c.geometryFile
			}
			c.cfg = cfg
			c.logger = observability.NewLoggerTo(stderr, cfg)
			c.metrics = observability.NewLocalMetrics()
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&c.outputFlag, "output", "o", "table", "Output format: table, json, yaml, csv")
	rootCmd.PersistentFlags().StringVar(&c.scoresFile, "scores", "", "Factor table CSV (overrides SCORES_FILE)")
	rootCmd.PersistentFlags().StringVar(&c.geometryFile, "geometry", "", "Region GeoJSON (overrides GEOMETRY_FILE)")

	rootCmd.AddCommand(newScoreCmd(c))
	rootCmd.AddCommand(newSimulateCmd(c))
	rootCmd.AddCommand(newValidateCmd(c))
	rootCmd.AddCommand(newReportCmd(c))
	rootCmd.AddCommand(newExportCmd(c))

	return rootCmd
}

func main() {
	rootCmd := newRootCmd(os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

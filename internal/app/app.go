// Package app assembles the evaluator and its collaborators from configuration.
package app

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/island-resilience-service/internal/adapter/advisory"
	"github.com/couchcryptid/island-resilience-service/internal/adapter/filelog"
	"github.com/couchcryptid/island-resilience-service/internal/adapter/source"
	"github.com/couchcryptid/island-resilience-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/island-resilience-service/internal/config"
	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/observability"
	"github.com/couchcryptid/island-resilience-service/internal/pipeline"
	"github.com/couchcryptid/island-resilience-service/internal/reports"
)

// App holds everything built from one configuration.
type App struct {
	Engine    *domain.Engine
	Simulator *domain.Simulator
	Baseline  []domain.RegionScore
	Merge     domain.MergeReport
	Coords    []domain.Coordinate
	Store     *reports.Store
	Evaluator *pipeline.Evaluator

	closeLog func() error
}

// NewScoring builds the engine and simulator from the configured weights,
// thresholds and impact factor.
func NewScoring(cfg *config.Config) (*domain.Engine, *domain.Simulator, error) {
	engine, err := domain.NewEngine(cfg.ScoringConfig())
	if err != nil {
		return nil, nil, err
	}
	sim, err := domain.NewSimulator(engine, cfg.ImpactFactor)
	if err != nil {
		return nil, nil, err
	}
	return engine, sim, nil
}

// LoadSources reads the geometry layer and the factor table.
func LoadSources(cfg *config.Config) ([]domain.GeometryRow, []domain.ScoreRow, error) {
	geometry, err := source.LoadGeometry(cfg.GeometryFile)
	if err != nil {
		return nil, nil, err
	}
	scores, err := source.LoadScores(cfg.ScoresFile)
	if err != nil {
		return nil, nil, err
	}
	return geometry, scores, nil
}

// OpenReportLog opens the configured report log backend. The returned close
// function is never nil.
func OpenReportLog(cfg *config.Config) (reports.Log, func() error, error) {
	noop := func() error { return nil }
	switch cfg.ReportStore {
	case config.StoreMemory:
		return reports.NewMemoryLog(), noop, nil
	case config.StoreSQLite:
		l, err := sqlstore.Open(cfg.ReportSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	case config.StoreFile, "":
		return filelog.New(cfg.ReportFile), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown report store %q", domain.ErrValidation, cfg.ReportStore)
	}
}

// NewAdvisor returns the cached advisory client, or nil when the advisor is disabled.
func NewAdvisor(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Advisor {
	if !cfg.AdvisoryEnabled {
		metrics.AdvisoryEnabled.Set(0)
		return nil
	}
	metrics.AdvisoryEnabled.Set(1)
	client := advisory.NewClient(cfg.AdvisoryURL, cfg.AdvisoryTimeout, metrics, logger)
	return advisory.NewCachedAdvisor(client, cfg.AdvisoryCacheSize, metrics)
}

// New loads the sources, scores the baseline and opens the report store.
// advisor may be nil.
func New(cfg *config.Config, advisor domain.Advisor, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	engine, sim, err := NewScoring(cfg)
	if err != nil {
		return nil, err
	}
	coords, err := config.LoadRegions(cfg.RegionsFile)
	if err != nil {
		return nil, err
	}
	hazardZones, err := source.CountHazardZones(cfg.HazardZonesFile)
	if err != nil {
		return nil, err
	}

	geometry, scores, err := LoadSources(cfg)
	if err != nil {
		return nil, err
	}
	baseline, merge, err := pipeline.BuildBaseline(engine, domain.NewAssembler(logger), geometry, scores, metrics)
	if err != nil {
		return nil, err
	}
	logger.Info("baseline scored",
		"regions", len(baseline),
		"strategy", merge.Strategy,
		"geometry_rows", merge.GeometryRows,
		"score_rows", merge.ScoreRows,
	)

	reportLog, closeLog, err := OpenReportLog(cfg)
	if err != nil {
		return nil, err
	}
	store := reports.NewStore(reportLog, nil, logger, metrics)

	return &App{
		Engine:    engine,
		Simulator: sim,
		Baseline:  baseline,
		Merge:     merge,
		Coords:    coords,
		Store:     store,
		Evaluator: pipeline.NewEvaluator(pipeline.EvaluatorConfig{
			Baseline:    baseline,
			Coordinates: coords,
			Simulator:   sim,
			Store:       store,
			Advisor:     advisor,
			HazardZones: hazardZones,
		}, logger, metrics),
		closeLog: closeLog,
	}, nil
}

// Close releases the report log.
func (a *App) Close() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

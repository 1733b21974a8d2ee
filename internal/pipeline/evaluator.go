package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/observability"
)

// ReportStore is the citizen report store as seen by the evaluator.
type ReportStore interface {
	Append(ctx context.Context, regionID, kind string) (domain.CitizenReport, error)
	Aggregate(ctx context.Context, regionID string) (domain.ReportAggregate, error)
	AggregateAll(ctx context.Context, ids []string) (map[string]domain.ReportAggregate, error)
	Prune(ctx context.Context, maxAge time.Duration) (int, error)
}

// BuildBaseline merges the raw sources and scores the result. It is the
// severity-0 batch every scenario starts from.
func BuildBaseline(engine *domain.Engine, assembler *domain.Assembler, geometry []domain.GeometryRow, scores []domain.ScoreRow, metrics *observability.Metrics) ([]domain.RegionScore, domain.MergeReport, error) {
	inputs, report, err := assembler.Merge(geometry, scores)
	metrics.RecordMerge(report.DroppedInvalidScores, report.DroppedMissingGeometry, report.DroppedDuplicates,
		report.DroppedGeometryOnly, report.DroppedScoresOnly, report.Truncated)
	if err != nil {
		return nil, report, err
	}

	scored, err := engine.ScoreBatch(inputs)
	if err != nil {
		return nil, report, err
	}
	metrics.RegionsScored.Add(float64(len(scored)))
	return scored, report, nil
}

// EvaluatorConfig wires the evaluator's collaborators.
type EvaluatorConfig struct {
	Baseline    []domain.RegionScore
	Coordinates []domain.Coordinate
	Simulator   *domain.Simulator
	Store       ReportStore
	Advisor     domain.Advisor // nil disables the external advisor
	HazardZones int
}

// Evaluator answers scenario queries over a fixed baseline batch.
// It is safe for concurrent use: the baseline is never mutated and every
// query works on its own rescored copy.
type Evaluator struct {
	baseline    []domain.RegionScore
	coords      []domain.Coordinate
	simulator   *domain.Simulator
	store       ReportStore
	advisor     domain.Advisor
	hazardZones int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewEvaluator creates an evaluator.
func NewEvaluator(cfg EvaluatorConfig, logger *slog.Logger, metrics *observability.Metrics) *Evaluator {
	return &Evaluator{
		baseline:    cfg.Baseline,
		coords:      cfg.Coordinates,
		simulator:   cfg.Simulator,
		store:       cfg.Store,
		advisor:     cfg.Advisor,
		hazardZones: cfg.HazardZones,
		logger:      logger,
		metrics:     metrics,
	}
}

// Evaluate scores every region under severity and joins the citizen report aggregates.
func (e *Evaluator) Evaluate(ctx context.Context, severity int) (domain.Evaluation, error) {
	start := time.Now()

	scored, err := e.simulator.ApplyDisaster(e.baseline, severity)
	if err != nil {
		return domain.Evaluation{}, err
	}

	ids := make([]string, len(scored))
	for i, r := range scored {
		ids[i] = r.RegionID
	}
	aggregates, err := e.store.AggregateAll(ctx, ids)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("aggregate citizen reports: %w", err)
	}

	eval := domain.NewEvaluation(severity, domain.MergeReportAggregates(scored, aggregates))
	e.metrics.RegionsScored.Add(float64(len(scored)))
	e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	return eval, nil
}

// RegionDetail is one region's status with the alert shown to its citizens.
type RegionDetail struct {
	Severity      int                 `json:"severity"`
	SeverityLabel string              `json:"severity_label"`
	Region        domain.RegionStatus `json:"region"`
	Alert         domain.Alert        `json:"alert"`
}

// Region returns the status and citizen alert of one region under severity.
func (e *Evaluator) Region(ctx context.Context, regionID string, severity int) (RegionDetail, error) {
	eval, err := e.Evaluate(ctx, severity)
	if err != nil {
		return RegionDetail{}, err
	}
	status, err := eval.Find(regionID)
	if err != nil {
		return RegionDetail{}, err
	}
	return RegionDetail{
		Severity:      eval.Severity,
		SeverityLabel: eval.SeverityLabel,
		Region:        status,
		Alert:         domain.CitizenAlert(status.RegionScore),
	}, nil
}

// SummaryView is the island-wide overview under one severity.
type SummaryView struct {
	Severity      int                  `json:"severity"`
	SeverityLabel string               `json:"severity_label"`
	Summary       domain.Summary       `json:"summary"`
	Threshold     float64              `json:"evacuation_threshold"`
	Evacuation    []domain.RegionScore `json:"evacuation"`
}

// Summary computes island-wide counts and the regions below threshold.
func (e *Evaluator) Summary(ctx context.Context, severity int, threshold float64) (SummaryView, error) {
	eval, err := e.Evaluate(ctx, severity)
	if err != nil {
		return SummaryView{}, err
	}
	scores := eval.Scores()
	return SummaryView{
		Severity:      eval.Severity,
		SeverityLabel: eval.SeverityLabel,
		Summary:       domain.Summarize(scores),
		Threshold:     threshold,
		Evacuation:    domain.EvacuationList(scores, threshold),
	}, nil
}

// Locate gives safety advice for a point under severity.
func (e *Evaluator) Locate(_ context.Context, lat, lon float64, severity, topN int) (domain.LocationAdvice, error) {
	scored, err := e.simulator.ApplyDisaster(e.baseline, severity)
	if err != nil {
		return domain.LocationAdvice{}, err
	}
	return domain.AdviseLocation(domain.NewResolver(e.coords, scored), lat, lon, severity, topN)
}

// Advise prepares an operational report for one region, or for the whole
// island when regionID is empty. It never fails because of the advisor:
// advisor errors degrade to the deterministic fallback report.
func (e *Evaluator) Advise(ctx context.Context, regionID string, severity int) (domain.AdvisoryReport, error) {
	eval, err := e.Evaluate(ctx, severity)
	if err != nil {
		return domain.AdvisoryReport{}, err
	}

	scope := domain.IslandWideScope
	if regionID != "" {
		status, err := eval.Find(regionID)
		if err != nil {
			return domain.AdvisoryReport{}, err
		}
		scope = domain.ReportScope(status.RegionName)
	}

	aggregates := make(map[string]domain.ReportAggregate, len(eval.Regions))
	for _, r := range eval.Regions {
		aggregates[r.RegionID] = r.Reports
	}
	actx := domain.BuildAdvisoryContext(eval.Scores(), aggregates, e.hazardZones)

	report := domain.PrepareReport(ctx, e.advisor, scope, actx, e.logger)
	if report.Source == domain.SourceFallback {
		e.metrics.AdvisoryRequests.WithLabelValues("fallback").Inc()
	}
	return report, nil
}

// SubmitReport records a citizen report.
func (e *Evaluator) SubmitReport(ctx context.Context, regionID, kind string) (domain.CitizenReport, error) {
	return e.store.Append(ctx, regionID, kind)
}

// RegionReports aggregates the citizen reports of one region.
func (e *Evaluator) RegionReports(ctx context.Context, regionID string) (domain.ReportAggregate, error) {
	return e.store.Aggregate(ctx, regionID)
}

// PruneReports removes citizen reports older than maxAge.
func (e *Evaluator) PruneReports(ctx context.Context, maxAge time.Duration) (int, error) {
	return e.store.Prune(ctx, maxAge)
}

// Package reports implements the citizen report store: an append-only log of
// per-region danger/safe reports with aggregation and age-based pruning.
//
// The store owns the locking. A Log backend only has to persist what it is
// given; the store guarantees that Append and Rewrite never run concurrently,
// so a prune can never swallow a report appended while it was in progress.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Log is the persistence capability behind the store.
type Log interface {
	// Append durably adds one report to the end of the log.
	Append(ctx context.Context, r domain.CitizenReport) error

	// Scan returns every report in insertion order.
	Scan(ctx context.Context) ([]domain.CitizenReport, error)

	// Rewrite atomically replaces the whole log with reports.
	Rewrite(ctx context.Context, reports []domain.CitizenReport) error
}

// Store serializes writes to a Log and answers aggregate queries over it.
type Store struct {
	log     Log
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	mu      sync.RWMutex
}

// NewStore wraps log. A nil clock means the real clock.
func NewStore(log Log, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{log: log, clock: clock, logger: logger, metrics: metrics}
}

// Append records a report of kind for regionID, stamped with the current time.
// The region is not checked against the known region set.
func (s *Store) Append(ctx context.Context, regionID, kind string) (domain.CitizenReport, error) {
	id := domain.NormalizeRegionID(regionID)
	if id == "" {
		return domain.CitizenReport{}, fmt.Errorf("%w: region_id is required", domain.ErrValidation)
	}
	k, err := domain.ParseReportKind(kind)
	if err != nil {
		return domain.CitizenReport{}, err
	}

	r := domain.CitizenReport{
		ID:        id + "-" + uuid.NewString(),
		RegionID:  id,
		Kind:      k,
		CreatedAt: s.clock.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.log.Append(ctx, r); err != nil {
		return domain.CitizenReport{}, fmt.Errorf("append citizen report: %w", err)
	}
	s.metrics.ReportsAppended.WithLabelValues(string(k)).Inc()
	s.logger.Debug("citizen report appended", "region_id", id, "kind", k, "report_id", r.ID)
	return r, nil
}

// Aggregate counts the reports for regionID. An empty log yields a zero aggregate.
func (s *Store) Aggregate(ctx context.Context, regionID string) (domain.ReportAggregate, error) {
	all, err := s.AggregateAll(ctx, []string{regionID})
	if err != nil {
		return domain.ReportAggregate{}, err
	}
	return all[domain.NormalizeRegionID(regionID)], nil
}

// AggregateAll computes the aggregate of every requested region in one scan.
// Every requested ID is present in the result, keyed by its normalized form.
// A nil ids slice aggregates every region that appears in the log.
func (s *Store) AggregateAll(ctx context.Context, ids []string) (map[string]domain.ReportAggregate, error) {
	s.mu.RLock()
	reports, err := s.log.Scan(ctx)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("scan citizen reports: %w", err)
	}

	out := make(map[string]domain.ReportAggregate, len(ids))
	for _, id := range ids {
		out[domain.NormalizeRegionID(id)] = domain.ReportAggregate{}
	}

	for _, r := range reports {
		id := domain.NormalizeRegionID(r.RegionID)
		agg, wanted := out[id]
		if !wanted && ids != nil {
			continue
		}
		agg.Add(r.Kind)
		out[id] = agg
	}
	return out, nil
}

// Reports returns every stored report in insertion order.
func (s *Store) Reports(ctx context.Context) ([]domain.CitizenReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports, err := s.log.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan citizen reports: %w", err)
	}
	return reports, nil
}

// Prune deletes every report older than maxAge and returns how many were
// removed. Reports exactly maxAge old are kept. Pruning holds the write lock
// for the whole scan-and-rewrite, so concurrent appends land after it.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge < 0 {
		return 0, fmt.Errorf("%w: max age must not be negative, got %s", domain.ErrValidation, maxAge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.log.Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan citizen reports: %w", err)
	}

	cutoff := s.clock.Now().Add(-maxAge)
	keep := make([]domain.CitizenReport, 0, len(reports))
	for _, r := range reports {
		if !r.CreatedAt.Before(cutoff) {
			keep = append(keep, r)
		}
	}

	removed := len(reports) - len(keep)
	if removed == 0 {
		return 0, nil
	}
	if err := s.log.Rewrite(ctx, keep); err != nil {
		return 0, fmt.Errorf("rewrite citizen reports: %w", err)
	}

	s.metrics.ReportsPruned.Add(float64(removed))
	s.logger.Info("pruned citizen reports", "removed", removed, "kept", len(keep), "max_age", maxAge.String())
	return removed, nil
}

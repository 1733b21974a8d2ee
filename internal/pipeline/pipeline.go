package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// BatchLoader writes an evaluation to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, eval domain.Evaluation) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Options controls the background loop's schedule.
type Options struct {
	PublishInterval time.Duration
	PruneInterval   time.Duration
	ReportMaxAge    time.Duration
	Clock           clockwork.Clock // nil means the real clock
}

// Pipeline periodically publishes the baseline evaluation and prunes old
// citizen reports.
type Pipeline struct {
	evaluator *Evaluator
	loader    BatchLoader
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline. A nil loader evaluates without publishing.
func New(evaluator *Evaluator, loader BatchLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		evaluator: evaluator,
		loader:    loader,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the first evaluation cycle has succeeded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no evaluation has completed yet")
	}
	return nil
}

// Run publishes immediately, then on every publish tick, until the context is
// cancelled. Pruning runs on its own goroutine so a destination that keeps
// failing does not stall it.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"publish_interval", p.opts.PublishInterval.String(),
		"prune_interval", p.opts.PruneInterval.String(),
		"report_max_age", p.opts.ReportMaxAge.String(),
		"publishing", p.loader != nil,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	publishTicker := p.opts.Clock.NewTicker(p.opts.PublishInterval)
	defer publishTicker.Stop()
	pruneTicker := p.opts.Clock.NewTicker(p.opts.PruneInterval)
	defer pruneTicker.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.pruneLoop(ctx, pruneTicker)
	}()
	defer wg.Wait()

	if !p.publishWithRetry(ctx) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-publishTicker.Chan():
			if !p.publishWithRetry(ctx) {
				return nil
			}
		}
	}
}

func (p *Pipeline) pruneLoop(ctx context.Context, ticker clockwork.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.prune(ctx)
		}
	}
}

// publishWithRetry runs one cycle, retrying with exponential backoff until it
// succeeds. Returns false if the context was cancelled first.
func (p *Pipeline) publishWithRetry(ctx context.Context) bool {
	backoff := initialBackoff
	for {
		err := p.publish(ctx)
		if err == nil {
			p.ready.Store(true)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish evaluation failed", "error", err, "retry_in", backoff.String())
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Pipeline) publish(ctx context.Context) error {
	eval, err := p.evaluator.Evaluate(ctx, 0)
	if err != nil {
		return err
	}
	if p.loader == nil {
		return nil
	}
	if err := p.loader.LoadBatch(ctx, eval); err != nil {
		return err
	}
	p.metrics.EvaluationsPublished.Inc()
	p.logger.Info("evaluation published", "regions", len(eval.Regions))
	return nil
}

func (p *Pipeline) prune(ctx context.Context) {
	if _, err := p.evaluator.PruneReports(ctx, p.opts.ReportMaxAge); err != nil && ctx.Err() == nil {
		p.logger.Error("prune citizen reports failed", "error", err)
	}
}

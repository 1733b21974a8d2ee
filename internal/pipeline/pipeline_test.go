package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type recordingLoader struct {
	batches chan domain.Evaluation
	fail    atomic.Int64 // number of calls to fail before succeeding; -1 fails forever
}

func newRecordingLoader() *recordingLoader {
	return &recordingLoader{batches: make(chan domain.Evaluation, 16)}
}

func (l *recordingLoader) LoadBatch(_ context.Context, eval domain.Evaluation) error {
	if n := l.fail.Load(); n != 0 {
		if n > 0 {
			l.fail.Add(-1)
		}
		return errors.New("broker unavailable")
	}
	l.batches <- eval
	return nil
}

func (l *recordingLoader) next(t *testing.T) domain.Evaluation {
	t.Helper()
	select {
	case eval := <-l.batches:
		return eval
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a published evaluation")
		return domain.Evaluation{}
	}
}

func runPipeline(t *testing.T, p *pipeline.Pipeline) (context.Context, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return ctx, func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("pipeline did not stop")
		}
	}
}

// --- tests ---

func TestPipeline_PublishesImmediatelyAndOnTick(t *testing.T) {
	f := newFixture(t, nil)
	ldr := newRecordingLoader()
	p := pipeline.New(f.evaluator, ldr, pipeline.Options{
		PublishInterval: time.Minute,
		PruneInterval:   time.Hour,
		ReportMaxAge:    24 * time.Hour,
		Clock:           f.clock,
	}, discardLogger(), f.metrics)

	ctx, stop := runPipeline(t, p)

	first := ldr.next(t)
	assert.Equal(t, 0, first.Severity)
	assert.Len(t, first.Regions, 4)
	require.NoError(t, p.CheckReadiness(ctx))

	require.NoError(t, f.clock.BlockUntilContext(ctx, 2))
	f.clock.Advance(time.Minute)
	second := ldr.next(t)
	assert.Equal(t, epoch.Add(time.Minute), second.EvaluatedAt)

	stop()
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.EvaluationsPublished))
	assert.Zero(t, testutil.ToFloat64(f.metrics.PipelineRunning))
}

func TestPipeline_RetriesFailingLoader(t *testing.T) {
	f := newFixture(t, nil)
	ldr := newRecordingLoader()
	ldr.fail.Store(2)
	p := pipeline.New(f.evaluator, ldr, pipeline.Options{
		PublishInterval: time.Minute,
		PruneInterval:   time.Hour,
		ReportMaxAge:    24 * time.Hour,
		Clock:           f.clock,
	}, discardLogger(), f.metrics)

	_, stop := runPipeline(t, p)
	ldr.next(t)
	stop()

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.PublishErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EvaluationsPublished))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_NotReadyWhileLoaderFails(t *testing.T) {
	f := newFixture(t, nil)
	ldr := newRecordingLoader()
	ldr.fail.Store(-1)
	p := pipeline.New(f.evaluator, ldr, pipeline.Options{
		PublishInterval: time.Minute,
		PruneInterval:   time.Hour,
		ReportMaxAge:    24 * time.Hour,
		Clock:           f.clock,
	}, discardLogger(), f.metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.GreaterOrEqual(t, testutil.ToFloat64(f.metrics.PublishErrors), 1.0)
}

func TestPipeline_PrunesOnTick(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.evaluator.SubmitReport(context.Background(), "MUPL", "danger")
	require.NoError(t, err)

	ldr := newRecordingLoader()
	p := pipeline.New(f.evaluator, ldr, pipeline.Options{
		PublishInterval: 48 * time.Hour,
		PruneInterval:   time.Hour,
		ReportMaxAge:    30 * time.Minute,
		Clock:           f.clock,
	}, discardLogger(), f.metrics)

	ctx, stop := runPipeline(t, p)
	defer stop()

	first := ldr.next(t)
	status, err := first.Find("MUPL")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Reports.TotalCount)

	require.NoError(t, f.clock.BlockUntilContext(ctx, 2))
	f.clock.Advance(time.Hour)

	assert.Eventually(t, func() bool {
		remaining, err := f.store.Reports(context.Background())
		return err == nil && len(remaining) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReportsPruned))
}

func TestPipeline_PrunesWhileLoaderFails(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.evaluator.SubmitReport(context.Background(), "MUPL", "danger")
	require.NoError(t, err)

	ldr := newRecordingLoader()
	ldr.fail.Store(-1)
	p := pipeline.New(f.evaluator, ldr, pipeline.Options{
		PublishInterval: 48 * time.Hour,
		PruneInterval:   time.Hour,
		ReportMaxAge:    30 * time.Minute,
		Clock:           f.clock,
	}, discardLogger(), f.metrics)

	ctx, stop := runPipeline(t, p)

	require.NoError(t, f.clock.BlockUntilContext(ctx, 2))
	f.clock.Advance(time.Hour)

	assert.Eventually(t, func() bool {
		remaining, err := f.store.Reports(context.Background())
		return err == nil && len(remaining) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReportsPruned))

	stop()
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.GreaterOrEqual(t, testutil.ToFloat64(f.metrics.PublishErrors), 1.0)
}

func TestPipeline_NilLoaderEvaluatesOnly(t *testing.T) {
	f := newFixture(t, nil)
	p := pipeline.New(f.evaluator, nil, pipeline.Options{
		PublishInterval: time.Minute,
		PruneInterval:   time.Hour,
		ReportMaxAge:    24 * time.Hour,
		Clock:           f.clock,
	}, discardLogger(), f.metrics)

	_, stop := runPipeline(t, p)
	defer stop()

	assert.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, testutil.ToFloat64(f.metrics.EvaluationsPublished))
}

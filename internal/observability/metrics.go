package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "island_resilience"

// Metrics holds the Prometheus counters, histograms, and gauges for the resilience service.
type Metrics struct {
	// Scoring metrics.
	RegionsScored      prometheus.Counter
	RegionsDropped     *prometheus.CounterVec // labels: reason={invalid_score,missing_geometry,duplicate,geometry_only,scores_only,truncated}
	EvaluationDuration prometheus.Histogram

	// Citizen report metrics.
	ReportsAppended *prometheus.CounterVec // labels: kind={danger,safe}
	ReportsPruned   prometheus.Counter

	// Publishing loop metrics.
	PipelineRunning      prometheus.Gauge
	EvaluationsPublished prometheus.Counter
	PublishErrors        prometheus.Counter

	// Advisory metrics.
	AdvisoryRequests    *prometheus.CounterVec // labels: outcome={success,error,fallback}
	AdvisoryCache       *prometheus.CounterVec // labels: result={hit,miss}
	AdvisoryAPIDuration prometheus.Histogram
	AdvisoryEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RegionsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_scored_total",
			Help:      "Total region records scored across all evaluations.",
		}),
		RegionsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_dropped_total",
			Help:      "Rows dropped while merging geometry and score sources, by reason.",
		}, []string{"reason"}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of one scenario evaluation including report aggregation.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		ReportsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citizen_reports_appended_total",
			Help:      "Citizen reports accepted, by kind.",
		}, []string{"kind"}),
		ReportsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citizen_reports_pruned_total",
			Help:      "Citizen reports removed by age-based pruning.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the publish loop is active, 0 when shut down.",
		}),
		EvaluationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_published_total",
			Help:      "Evaluations written to the downstream topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed attempts to publish an evaluation.",
		}),
		AdvisoryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_requests_total",
			Help:      "Advisory service requests by outcome.",
		}, []string{"outcome"}),
		AdvisoryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_cache_total",
			Help:      "Advisory cache lookups by result.",
		}, []string{"result"}),
		AdvisoryAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisory_api_duration_seconds",
			Help:      "Advisory service request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		AdvisoryEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "advisory_enabled",
			Help:      "1 when the external advisory service is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.RegionsScored,
		m.RegionsDropped,
		m.EvaluationDuration,
		m.ReportsAppended,
		m.ReportsPruned,
		m.PipelineRunning,
		m.EvaluationsPublished,
		m.PublishErrors,
		m.AdvisoryRequests,
		m.AdvisoryCache,
		m.AdvisoryAPIDuration,
		m.AdvisoryEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RegionsScored:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "regions_scored_total"}),
		RegionsDropped:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "regions_dropped_total"}, []string{"reason"}),
		EvaluationDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "evaluation_duration_seconds"}),
		ReportsAppended:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "citizen_reports_appended_total"}, []string{"kind"}),
		ReportsPruned:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "citizen_reports_pruned_total"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		EvaluationsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "evaluations_published_total"}),
		PublishErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "publish_errors_total"}),
		AdvisoryRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "advisory_requests_total"}, []string{"outcome"}),
		AdvisoryCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "advisory_cache_total"}, []string{"result"}),
		AdvisoryAPIDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "advisory_api_duration_seconds"}),
		AdvisoryEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "advisory_enabled"}),
	}
}

// RecordMerge adds the dropped-row counts of one merge, by reason.
func (m *Metrics) RecordMerge(invalidScores, missingGeometry, duplicates, geometryOnly, scoresOnly, truncated int) {
	for reason, n := range map[string]int{
		"invalid_score":    invalidScores,
		"missing_geometry": missingGeometry,
		"duplicate":        duplicates,
		"geometry_only":    geometryOnly,
		"scores_only":      scoresOnly,
		"truncated":        truncated,
	} {
		if n > 0 {
			m.RegionsDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
}

// NewLocalMetrics returns unregistered metrics for one-shot tools that never serve /metrics.
func NewLocalMetrics() *Metrics {
	return NewMetricsForTesting()
}

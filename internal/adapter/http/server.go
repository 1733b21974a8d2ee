package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the evaluation surface the API serves.
type Service interface {
	Evaluate(ctx context.Context, severity int) (domain.Evaluation, error)
	Region(ctx context.Context, regionID string, severity int) (pipeline.RegionDetail, error)
	Summary(ctx context.Context, severity int, threshold float64) (pipeline.SummaryView, error)
	Locate(ctx context.Context, lat, lon float64, severity, topN int) (domain.LocationAdvice, error)
	Advise(ctx context.Context, regionID string, severity int) (domain.AdvisoryReport, error)
	SubmitReport(ctx context.Context, regionID, kind string) (domain.CitizenReport, error)
	RegionReports(ctx context.Context, regionID string) (domain.ReportAggregate, error)
	PruneReports(ctx context.Context, maxAge time.Duration) (int, error)
}

// Server exposes the scoring API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer   *http.Server
	svc          Service
	reportMaxAge time.Duration
	logger       *slog.Logger
}

// NewServer creates an HTTP server. reportMaxAge is the prune age used when
// a DELETE /v1/reports request names none.
func NewServer(addr string, svc Service, ready sharedobs.ReadinessChecker, reportMaxAge time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:          svc,
		reportMaxAge: reportMaxAge,
		logger:       logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/regions", s.handleRegions)
	mux.HandleFunc("GET /v1/regions/{id}", s.handleRegion)
	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/locate", s.handleLocate)
	mux.HandleFunc("GET /v1/advisory", s.handleAdvisory)
	mux.HandleFunc("POST /v1/reports", s.handleSubmitReport)
	mux.HandleFunc("GET /v1/reports/{region_id}", s.handleRegionReports)
	mux.HandleFunc("DELETE /v1/reports", s.handlePruneReports)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

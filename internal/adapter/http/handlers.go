package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	defaultEvacuationThreshold = 50.0
	defaultTopN                = 3
	maxBodyBytes               = 1 << 16
)

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	severity, err := intParam(r, "severity", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" {
		s.writeError(w, r, fmt.Errorf("%w: unsupported format %q (supported: json, csv)", domain.ErrValidation, format))
		return
	}
	eval, err := s.svc.Evaluate(r.Context(), severity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if format == "csv" {
		s.writeRescueReport(w, r, eval)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, eval)
}

func (s *Server) writeRescueReport(w http.ResponseWriter, r *http.Request, eval domain.Evaluation) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.RescueReportFilename(eval.Severity)))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(domain.RescueReportHeader)
	_ = cw.WriteAll(eval.RescueReportRows())
	if err := cw.Error(); err != nil {
		s.logger.Error("write rescue report", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	severity, err := intParam(r, "severity", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.svc.Region(r.Context(), r.PathValue("id"), severity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, detail)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	severity, err := intParam(r, "severity", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	threshold, err := floatParam(r, "threshold", defaultEvacuationThreshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Summary(r.Context(), severity, threshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lon") == "" {
		s.writeError(w, r, fmt.Errorf("%w: lat and lon are required", domain.ErrValidation))
		return
	}
	lat, err := floatParam(r, "lat", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lon, err := floatParam(r, "lon", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	severity, err := intParam(r, "severity", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	top, err := intParam(r, "top", defaultTopN)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if top < 1 {
		s.writeError(w, r, fmt.Errorf("%w: top must be at least 1, got %d", domain.ErrValidation, top))
		return
	}

	advice, err := s.svc.Locate(r.Context(), lat, lon, severity, top)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, advice)
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	severity, err := intParam(r, "severity", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.svc.Advise(r.Context(), strings.TrimSpace(r.URL.Query().Get("region")), severity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

type submitReportRequest struct {
	RegionID string `json:"region_id"`
	Type     string `json:"type"`
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decode report: %v", domain.ErrValidation, err))
		return
	}
	report, err := s.svc.SubmitReport(r.Context(), req.RegionID, req.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, report)
}

func (s *Server) handleRegionReports(w http.ResponseWriter, r *http.Request) {
	agg, err := s.svc.RegionReports(r.Context(), r.PathValue("region_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, agg)
}

func (s *Server) handlePruneReports(w http.ResponseWriter, r *http.Request) {
	maxAge := s.reportMaxAge
	if raw := r.URL.Query().Get("max_age"); raw != "" {
		d, err := domain.ParseMaxAge(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		maxAge = d
	}
	removed, err := s.svc.PruneReports(r.Context(), maxAge)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// writeError maps domain error kinds to status codes. Anything unrecognized
// is an internal error and is logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSchema), errors.Is(err, domain.ErrEmptySource):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrValidation, name, raw)
	}
	return n, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrValidation, name, raw)
	}
	return f, nil
}

package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ReportKind is the status a citizen reports for a region.
type ReportKind string

const (
	ReportDanger ReportKind = "danger"
	ReportSafe   ReportKind = "safe"
)

// ParseReportKind normalizes s and rejects anything other than danger or safe.
func ParseReportKind(s string) (ReportKind, error) {
	switch k := ReportKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ReportDanger, ReportSafe:
		return k, nil
	default:
		return "", fmt.Errorf("%w: report type must be %q or %q, got %q", ErrValidation, ReportDanger, ReportSafe, s)
	}
}

// CitizenReport is one immutable entry of the report log.
// RegionID is not checked against the known region set.
type CitizenReport struct {
	ID        string     `json:"id"`
	RegionID  string     `json:"region_id"`
	Kind      ReportKind `json:"type"`
	CreatedAt time.Time  `json:"timestamp"`
}

// naiveTimestampLayouts are ISO-8601 forms without a zone, read as UTC.
var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts RFC 3339 timestamps and zone-less ISO-8601 timestamps,
// which older logs contain.
func (r *CitizenReport) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string     `json:"id"`
		RegionID  string     `json:"region_id"`
		Kind      ReportKind `json:"type"`
		Timestamp string     `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := ParseReportTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("report %q: %w", raw.ID, err)
	}
	*r = CitizenReport{ID: raw.ID, RegionID: raw.RegionID, Kind: raw.Kind, CreatedAt: ts}
	return nil
}

// ParseReportTimestamp parses an RFC 3339 or zone-less ISO-8601 timestamp.
func ParseReportTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReportAggregate summarizes the reports of one region.
type ReportAggregate struct {
	DangerCount int     `json:"danger_count"`
	SafeCount   int     `json:"safe_count"`
	TotalCount  int     `json:"total_count"`
	DangerRatio float64 `json:"danger_ratio"`
}

// Add counts one report of the given kind.
func (a *ReportAggregate) Add(kind ReportKind) {
	switch kind {
	case ReportDanger:
		a.DangerCount++
	case ReportSafe:
		a.SafeCount++
	}
	a.TotalCount++
	a.DangerRatio = float64(a.DangerCount) / float64(a.TotalCount)
}

// ParseMaxAge reads a prune age as a Go duration ("36h") or a bare number of hours ("24").
func ParseMaxAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	d, err := time.ParseDuration(s)
	if err != nil {
		hours, herr := strconv.ParseFloat(s, 64)
		if herr != nil || math.IsNaN(hours) || math.IsInf(hours, 0) {
			return 0, fmt.Errorf("%w: invalid max age %q", ErrValidation, s)
		}
		d = time.Duration(hours * float64(time.Hour))
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: max age must not be negative, got %q", ErrValidation, s)
	}
	return d, nil
}

package domain

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// RegionStatus is a scored region joined with its citizen report aggregate.
// It is the record published downstream and served by the API.
type RegionStatus struct {
	RegionScore
	Reports ReportAggregate `json:"citizen_reports"`
}

// MergeReportAggregates joins each region with its aggregate. Regions with no
// reports get a zero aggregate.
func MergeReportAggregates(regions []RegionScore, aggregates map[string]ReportAggregate) []RegionStatus {
	out := make([]RegionStatus, len(regions))
	for i, r := range regions {
		out[i] = RegionStatus{RegionScore: r, Reports: aggregates[r.RegionID]}
	}
	return out
}

// Evaluation is one scored snapshot of every region under a disaster severity.
type Evaluation struct {
	Severity      int            `json:"severity"`
	SeverityLabel string         `json:"severity_label"`
	EvaluatedAt   time.Time      `json:"evaluated_at"`
	Regions       []RegionStatus `json:"regions"`
}

// NewEvaluation stamps a snapshot with the current time.
func NewEvaluation(severity int, regions []RegionStatus) Evaluation {
	return Evaluation{
		Severity:      severity,
		SeverityLabel: SeverityLabel(severity),
		EvaluatedAt:   clock.Now().UTC(),
		Regions:       regions,
	}
}

// Scores returns the score part of every region status.
func (e Evaluation) Scores() []RegionScore {
	out := make([]RegionScore, len(e.Regions))
	for i, r := range e.Regions {
		out[i] = r.RegionScore
	}
	return out
}

// Find returns the status of regionID, matched after normalization.
func (e Evaluation) Find(regionID string) (RegionStatus, error) {
	id := NormalizeRegionID(regionID)
	for _, r := range e.Regions {
		if NormalizeRegionID(r.RegionID) == id {
			return r, nil
		}
	}
	return RegionStatus{}, fmt.Errorf("%w: region %q", ErrNotFound, regionID)
}

// Summary holds island-wide counts for a scored batch.
type Summary struct {
	TotalRegions      int     `json:"total_regions"`
	SafeRegions       int     `json:"safe_regions"`
	MediumRegions     int     `json:"medium_regions"`
	AtRiskRegions     int     `json:"at_risk_regions"`
	AvgResilience     float64 `json:"avg_resilience"`
	PopulationAtRisk  int     `json:"population_at_risk"`
	CriticalRegions   int     `json:"critical_regions"`
	HighestResilience float64 `json:"highest_resilience"`
	LowestResilience  float64 `json:"lowest_resilience"`
}

// Summarize counts regions per tier. At-risk means low or critical.
func Summarize(regions []RegionScore) Summary {
	s := Summary{TotalRegions: len(regions)}
	if len(regions) == 0 {
		return s
	}

	var total float64
	s.LowestResilience = regions[0].ResilienceIndex
	for _, r := range regions {
		total += r.ResilienceIndex
		s.HighestResilience = max(s.HighestResilience, r.ResilienceIndex)
		s.LowestResilience = min(s.LowestResilience, r.ResilienceIndex)

		switch r.Category {
		case CategoryHigh:
			s.SafeRegions++
		case CategoryMedium:
			s.MediumRegions++
		case CategoryCritical:
			s.CriticalRegions++
			fallthrough
		case CategoryLow:
			s.AtRiskRegions++
			s.PopulationAtRisk += r.Population
		}
	}
	s.AvgResilience = round2(total / float64(len(regions)))
	return s
}

// EvacuationList returns regions with an index below threshold, lowest first.
func EvacuationList(regions []RegionScore, threshold float64) []RegionScore {
	out := []RegionScore{}
	for _, r := range regions {
		if r.ResilienceIndex < threshold {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b RegionScore) int {
		return cmp.Compare(a.ResilienceIndex, b.ResilienceIndex)
	})
	return out
}

// AlertLevel is the citizen-facing urgency of a region's status.
type AlertLevel string

const (
	AlertCritical AlertLevel = "critical"
	AlertWarning  AlertLevel = "warning"
	AlertCaution  AlertLevel = "caution"
	AlertSafe     AlertLevel = "safe"
)

// Alert is the message and checklist shown to a citizen for their region.
type Alert struct {
	Level   AlertLevel `json:"alert_level"`
	Message string     `json:"message"`
	Actions []string   `json:"actions"`
}

// CitizenAlert builds the alert for a region from its category.
func CitizenAlert(r RegionScore) Alert {
	switch r.Category {
	case CategoryCritical:
		return Alert{
			Level:   AlertCritical,
			Message: fmt.Sprintf("CRITICAL DANGER: %s - %.1f/100", r.RegionName, r.ResilienceIndex),
			Actions: []string{
				"Evacuate immediately if ordered",
				"Keep an emergency kit ready (water, food, medication)",
				"Locate the nearest shelter",
				"Follow radio and TV bulletins continuously",
			},
		}
	case CategoryLow:
		return Alert{
			Level:   AlertWarning,
			Message: fmt.Sprintf("WARNING: %s - %.1f/100", r.RegionName, r.ResilienceIndex),
			Actions: []string{
				"Prepare an emergency kit",
				"Locate the nearest shelter",
				"Stay informed",
				"Be ready to evacuate if needed",
			},
		}
	case CategoryMedium:
		return Alert{
			Level:   AlertCaution,
			Message: fmt.Sprintf("CAUTION: %s - %.1f/100", r.RegionName, r.ResilienceIndex),
			Actions: []string{
				"Monitor weather bulletins",
				"Check your emergency kit",
				"Be ready to act quickly",
			},
		}
	default:
		return Alert{
			Level:   AlertSafe,
			Message: fmt.Sprintf("SAFE: %s - %.1f/100", r.RegionName, r.ResilienceIndex),
			Actions: []string{
				"Stay alert",
				"Stay informed",
			},
		}
	}
}

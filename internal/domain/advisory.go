package domain

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

const (
	// adaptationGapMax is the exclusive upper bound on adaptation for an adaptation gap.
	adaptationGapMax = 50.0

	// IslandWideScope labels reports that cover every region.
	IslandWideScope = "Island-wide analysis"
)

// AdvisoryRegion is a region as presented to the advisor.
type AdvisoryRegion struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ResilienceIndex float64  `json:"resilience_index"`
	Category        Category `json:"category"`
	Exposure        float64  `json:"exposure"`
	Vulnerability   float64  `json:"vulnerability"`
	Adaptation      float64  `json:"adaptation"`
}

// CriticalZone is a region below RiskZoneMaxIndex with its dominant risk.
type CriticalZone struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	MainRisk string  `json:"main_risk"`
}

// AdaptationGap is a region whose coping capacity is below adaptationGapMax.
type AdaptationGap struct {
	Region          string  `json:"region"`
	AdaptationScore float64 `json:"adaptation_score"`
	Exposure        float64 `json:"exposure"`
	Vulnerability   float64 `json:"vulnerability"`
}

// ActiveAlert is a region that has at least one citizen report.
type ActiveAlert struct {
	RegionID   string `json:"region_id"`
	RegionName string `json:"region_name"`
	ReportAggregate
}

// AdvisoryContext is the payload handed to the advisor.
type AdvisoryContext struct {
	Regions        []AdvisoryRegion `json:"regions"`
	CriticalZones  []CriticalZone   `json:"critical_zones"`
	AdaptationGaps []AdaptationGap  `json:"adaptation_gaps"`
	ActiveAlerts   []ActiveAlert    `json:"active_alerts"`
	HazardZones    int              `json:"hazard_zones"`
	TotalRegions   int              `json:"total_regions"`
	AvgResilience  float64          `json:"avg_resilience"`
}

// BuildAdvisoryContext derives the advisor payload from a scored batch and
// its citizen aggregates. The output depends only on its inputs: regions and
// critical zones are sorted by ascending index, alerts by descending danger
// ratio then region ID.
func BuildAdvisoryContext(regions []RegionScore, aggregates map[string]ReportAggregate, hazardZones int) AdvisoryContext {
	actx := AdvisoryContext{
		Regions:        make([]AdvisoryRegion, 0, len(regions)),
		CriticalZones:  []CriticalZone{},
		AdaptationGaps: []AdaptationGap{},
		ActiveAlerts:   []ActiveAlert{},
		HazardZones:    hazardZones,
		TotalRegions:   len(regions),
	}

	var total float64
	for _, r := range regions {
		total += r.ResilienceIndex
		actx.Regions = append(actx.Regions, AdvisoryRegion{
			ID:              r.RegionID,
			Name:            r.RegionName,
			ResilienceIndex: r.ResilienceIndex,
			Category:        r.Category,
			Exposure:        r.Exposure,
			Vulnerability:   r.Vulnerability,
			Adaptation:      r.Adaptation,
		})
		if r.ResilienceIndex < RiskZoneMaxIndex {
			actx.CriticalZones = append(actx.CriticalZones, CriticalZone{
				Name:     r.RegionName,
				Score:    r.ResilienceIndex,
				MainRisk: MainRisk(r),
			})
		}
		if r.Adaptation < adaptationGapMax {
			actx.AdaptationGaps = append(actx.AdaptationGaps, AdaptationGap{
				Region:          r.RegionName,
				AdaptationScore: r.Adaptation,
				Exposure:        r.Exposure,
				Vulnerability:   r.Vulnerability,
			})
		}
		if agg, ok := aggregates[r.RegionID]; ok && agg.TotalCount > 0 {
			actx.ActiveAlerts = append(actx.ActiveAlerts, ActiveAlert{
				RegionID:        r.RegionID,
				RegionName:      r.RegionName,
				ReportAggregate: agg,
			})
		}
	}
	if len(regions) > 0 {
		actx.AvgResilience = round2(total / float64(len(regions)))
	}

	slices.SortStableFunc(actx.Regions, func(a, b AdvisoryRegion) int {
		return cmp.Compare(a.ResilienceIndex, b.ResilienceIndex)
	})
	slices.SortStableFunc(actx.CriticalZones, func(a, b CriticalZone) int {
		return cmp.Compare(a.Score, b.Score)
	})
	slices.SortStableFunc(actx.ActiveAlerts, func(a, b ActiveAlert) int {
		if c := cmp.Compare(b.DangerRatio, a.DangerRatio); c != 0 {
			return c
		}
		return cmp.Compare(a.RegionID, b.RegionID)
	})
	return actx
}

// MainRisk names the dominant driver of a region's risk.
func MainRisk(r RegionScore) string {
	switch {
	case r.Exposure > 80 && r.Vulnerability > 60:
		return "Critical exposure and fragile infrastructure: priority intervention"
	case r.Exposure > 80:
		return "Very high exposure: major cyclone and flood risk"
	case r.Vulnerability > 70:
		return "Failing infrastructure: urgent reinforcement"
	case r.Adaptation < 40:
		return "Insufficient adaptation capacity: training and equipment required"
	default:
		return "Moderate risk: continuous monitoring"
	}
}

// ThreatAssessment is the headline risk section of a report.
type ThreatAssessment struct {
	ImmediateRisks []string `json:"immediate_risks"`
	Timeframe      string   `json:"timeframe"`
	SeverityLevel  string   `json:"severity_level"`
}

// RegionAdvice is the per-region section of a report.
type RegionAdvice struct {
	Region             string   `json:"region"`
	ResilienceScore    float64  `json:"resilience_score"`
	KeyVulnerabilities []string `json:"key_vulnerabilities"`
	ImmediateActions   []string `json:"immediate_actions"`
	ResourceNeeds      []string `json:"resource_needs"`
}

// ResourceAllocation is the recommended deployment of emergency assets.
type ResourceAllocation struct {
	Helicopters       int `json:"helicopters"`
	Ambulances        int `json:"ambulances"`
	RescueTeams       int `json:"rescue_teams"`
	Boats             int `json:"boats"`
	EmergencyShelters int `json:"emergency_shelters"`
}

// ReportSource records whether a report came from the advisor or the local template.
type ReportSource string

const (
	SourceAdvisor  ReportSource = "advisor"
	SourceFallback ReportSource = "fallback"
)

// AdvisoryReport is an operational report for emergency services.
type AdvisoryReport struct {
	Scope                   string             `json:"scope"`
	ExecutiveSummary        string             `json:"executive_summary"`
	ThreatAssessment        ThreatAssessment   `json:"threat_assessment"`
	RegionSpecificAdvice    []RegionAdvice     `json:"region_specific_advice"`
	EvacuationPriorities    []string           `json:"evacuation_priorities"`
	ResourceAllocation      ResourceAllocation `json:"resource_allocation"`
	CriticalRecommendations []string           `json:"critical_recommendations"`
	PreparednessChecklist   []string           `json:"preparedness_checklist"`
	Source                  ReportSource       `json:"source"`
}

// ReportScope labels a report for one region, or the whole island when region is empty.
func ReportScope(regionName string) string {
	if regionName == "" {
		return IslandWideScope
	}
	return "Region: " + regionName
}

// PrepareReport asks the advisor for a report and degrades to FallbackReport
// when the advisor is nil, fails, or replies with something unparseable.
func PrepareReport(ctx context.Context, advisor Advisor, scope string, actx AdvisoryContext, logger *slog.Logger) AdvisoryReport {
	if advisor == nil {
		return FallbackReport(actx, scope)
	}

	text, err := advisor.Advise(ctx, scope, actx)
	if err != nil {
		logger.Warn("advisory request failed, using fallback report", "scope", scope, "error", err)
		return FallbackReport(actx, scope)
	}

	report, err := ParseAdvisorReply(text)
	if err != nil {
		logger.Warn("advisory reply unusable, using fallback report", "scope", scope, "error", err)
		return FallbackReport(actx, scope)
	}
	if report.Scope == "" {
		report.Scope = scope
	}
	report.Source = SourceAdvisor
	return report
}

var errEmptyReply = errors.New("advisor reply has no executive summary")

// ParseAdvisorReply decodes an advisor reply, stripping a surrounding
// markdown code fence (optionally tagged json) first.
func ParseAdvisorReply(text string) (AdvisoryReport, error) {
	body := stripCodeFence(text)

	var report AdvisoryReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return AdvisoryReport{}, fmt.Errorf("decode advisor reply: %w", err)
	}
	if strings.TrimSpace(report.ExecutiveSummary) == "" {
		return AdvisoryReport{}, errEmptyReply
	}
	return report, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	_, after, found := strings.Cut(text, "```")
	if !found {
		return text
	}
	body, _, _ := strings.Cut(after, "```")
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

// coastalHubs are regions where a critical rating calls for extra boats.
var coastalHubs = map[string]bool{
	"Port Louis": true,
	"Mahebourg":  true,
	"Grand Port": true,
}

// FallbackReport builds a templated report from the context alone.
func FallbackReport(actx AdvisoryContext, scope string) AdvisoryReport {
	var critical, highRisk []AdvisoryRegion
	for _, r := range actx.Regions {
		switch {
		case r.ResilienceIndex < RiskZoneMaxIndex:
			critical = append(critical, r)
		case r.ResilienceIndex < SafeZoneMinIndex:
			highRisk = append(highRisk, r)
		}
	}

	severity := "MODERATE"
	switch {
	case len(critical) >= 3:
		severity = "CRITICAL"
	case len(critical) > 0:
		severity = "ELEVATED"
	}

	focus := append(slices.Clone(critical), head(highRisk, 3)...)
	advice := make([]RegionAdvice, 0, len(focus))
	for _, r := range focus {
		advice = append(advice, fallbackRegionAdvice(r))
	}

	priorities := make([]string, 0, len(critical)+2)
	boats := 1
	for _, r := range critical {
		priorities = append(priorities, r.Name)
		if coastalHubs[r.Name] {
			boats = 2
		}
	}
	for _, r := range head(highRisk, 2) {
		priorities = append(priorities, r.Name)
	}

	return AdvisoryReport{
		Scope: scope,
		ExecutiveSummary: fmt.Sprintf(
			"Operational status: %d critical zone(s), %d high-risk zone(s). Average resilience: %.1f/100. Tactical deployment required per the prioritization matrix.",
			len(critical), len(highRisk), actx.AvgResilience,
		),
		ThreatAssessment: ThreatAssessment{
			ImmediateRisks: []string{
				"Critical infrastructure failure in exposed zones",
				"Limited evacuation capacity in vulnerable sectors",
				"Potential logistics breakdown during a major event",
			},
			Timeframe:     "0-6h for critical zones, 6-24h for high-risk zones",
			SeverityLevel: severity,
		},
		RegionSpecificAdvice: advice,
		EvacuationPriorities: priorities,
		ResourceAllocation: ResourceAllocation{
			Helicopters:       min(3, len(critical)),
			Ambulances:        3*len(critical) + 2*len(highRisk),
			RescueTeams:       2*len(critical) + len(highRisk),
			Boats:             boats,
			EmergencyShelters: len(critical) + len(highRisk),
		},
		CriticalRecommendations: []string{
			fmt.Sprintf("PRIORITY 1: Immediate deployment to %d critical zone(s)", len(critical)),
			"PRIORITY 2: Activate the national civil protection response plan",
			"PRIORITY 3: Coordinate police, fire, health and defence services",
			fmt.Sprintf("PRIORITY 4: Pre-position resources in buffer zones (%d sectors)", len(highRisk)),
			"PRIORITY 5: Test redundant communications (radio, satellite)",
		},
		PreparednessChecklist: []string{
			"Inventory emergency equipment, vehicles and stock",
			"Confirm staff availability and stand-by rosters",
			"Secure priority roads and fallback routes",
			"Activate operational coordination centres",
			"Test mass alerting (SMS, sirens, media)",
			"Agree surge plans with hospitals",
			"Coordinate with local authorities",
		},
		Source: SourceFallback,
	}
}

func fallbackRegionAdvice(r AdvisoryRegion) RegionAdvice {
	helicopters := 0
	if r.ResilienceIndex < 35 {
		helicopters = 1
	}
	return RegionAdvice{
		Region:          r.Name,
		ResilienceScore: r.ResilienceIndex,
		KeyVulnerabilities: []string{
			fmt.Sprintf("Exposure: %.0f/100 - high environmental risk", r.Exposure),
			fmt.Sprintf("Vulnerability: %.0f/100 - fragile infrastructure", r.Vulnerability),
			fmt.Sprintf("Adaptation: %.0f/100 - limited response capacity", r.Adaptation),
		},
		ImmediateActions: []string{
			"Pre-position rescue teams on stand-by",
			"Activate preventive evacuation protocol if conditions worsen",
			"Secure access routes for heavy equipment",
			"Set up a forward command post",
		},
		ResourceNeeds: []string{
			fmt.Sprintf("Urban search and rescue teams - %d unit(s)", max(1, int(r.Vulnerability/30))),
			fmt.Sprintf("Helicopter support - %d aircraft", helicopters),
			fmt.Sprintf("Ambulances - %d vehicle(s)", max(2, int(r.Exposure/25))),
			"Hostile-environment intervention kit",
		},
	}
}
